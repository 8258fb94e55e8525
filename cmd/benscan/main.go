package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"src.userspace.com.au/go-bencode/metainfo"
	"src.userspace.com.au/go-bencode/scanner"
	"src.userspace.com.au/go-bencode/store"
	"src.userspace.com.au/logger"
)

var (
	version string
	log     logger.Logger
)

// Scanner vars
var (
	debug       bool
	rateLimit   float64
	cacheSize   int
	skipTags    string
	showVersion bool
)

// Store vars
var (
	dsn string
)

func main() {
	flag.BoolVar(&debug, "debug", false, "show debug output")
	flag.Float64Var(&rateLimit, "rate", 100, "maximum files ingested per second")
	flag.IntVar(&cacheSize, "cache", 1000, "size of the seen infohash cache")
	flag.StringVar(&skipTags, "skip-tags", "xxx", "tags of torrents to skip")

	flag.StringVar(&dsn, "dsn", "file:benscan.db?cache=shared", "database DSN")

	flag.BoolVar(&showVersion, "v", false, "show version")

	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logOpts := &logger.Options{
		Name:  "benscan",
		Level: logger.Info,
	}

	if debug {
		logOpts.Level = logger.Debug
	}
	log = logger.New(logOpts)
	log.Info("version", version)
	log.Debug("debugging")

	dirs := flag.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] dir [dir ...]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	st, err := store.New(dsn)
	if err != nil {
		log.Error("failed to connect store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	s, err := scanner.New(
		scanner.SetStore(st),
		scanner.SetLogger(log),
		scanner.SetRate(rateLimit),
		scanner.SetCacheSize(cacheSize),
		scanner.SetSkipTags(strings.Split(skipTags, ",")),
		scanner.SetOnTorrent(func(t *metainfo.Torrent) {
			log.Info("indexed",
				"infohash", t.Infohash.String(),
				"name", t.Name,
				"size", t.Size,
			)
		}),
	)
	if err != nil {
		log.Error("failed to create scanner", "error", err)
		os.Exit(1)
	}

	total := 0
	for _, dir := range dirs {
		n, err := s.Scan(context.Background(), dir)
		if err != nil {
			log.Error("scan failed", "dir", dir, "error", err)
			os.Exit(1)
		}
		total += n
	}
	log.Info("done", "torrents", total)
}
