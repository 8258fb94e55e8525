// Package scanner ingests .torrent files from the filesystem into a
// torrent store.
package scanner

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
	"src.userspace.com.au/go-bencode/metainfo"
	"src.userspace.com.au/logger"
)

// TorrentStore is what the scanner needs from persistence.
type TorrentStore interface {
	SaveTorrent(*metainfo.Torrent) error
}

// Scanner walks directories of .torrent files, parses them, tags them
// and hands them to a store.
type Scanner struct {
	store     TorrentStore
	log       logger.Logger
	limiter   *rate.Limiter
	seen      *lru.ARCCache
	cacheSize int
	tagREs    map[string]*regexp.Regexp
	userTags  map[string]string
	skipTags  map[string]bool

	// OnTorrent is called for each newly ingested torrent
	OnTorrent func(*metainfo.Torrent)
}

// New creates a scanner
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		limiter:   rate.NewLimiter(rate.Limit(100), 100),
		cacheSize: 1000,
		log:       logger.New(&logger.Options{Name: "scanner"}),
		skipTags:  make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	var err error
	s.seen, err = lru.NewARC(s.cacheSize)
	if err != nil {
		return nil, err
	}

	s.tagREs = compileTagRegexps(s.userTags)
	return s, nil
}

// Scan walks root and ingests every .torrent file found. It returns
// the number of torrents ingested. Files that fail to parse are
// logged and skipped; the walk continues.
func (s *Scanner) Scan(ctx context.Context, root string) (int, error) {
	var count int
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !strings.HasSuffix(path, ".torrent") {
			return nil
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		t, err := s.ingest(path)
		if err != nil {
			s.log.Warn("failed to ingest", "path", path, "error", err)
			return nil
		}
		if t != nil {
			count++
		}
		return nil
	})
	return count, err
}

// ingest parses and stores one file. It returns nil without error
// when the torrent was skipped.
func (s *Scanner) ingest(path string) (*metainfo.Torrent, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	t, err := metainfo.Parse(data)
	if err != nil {
		return nil, err
	}

	key := t.Infohash.String()
	if _, ok := s.seen.Get(key); ok {
		s.log.Debug("already seen", "infohash", key)
		return nil, nil
	}

	t.Tags = s.tagTorrent(t)
	for _, tag := range t.Tags {
		if s.skipTags[tag] {
			s.log.Debug("skipping tagged torrent", "infohash", key, "tag", tag)
			s.seen.Add(key, struct{}{})
			return nil, nil
		}
	}

	if s.store != nil {
		if err := s.store.SaveTorrent(t); err != nil {
			return nil, err
		}
	}
	s.seen.Add(key, struct{}{})

	if s.OnTorrent != nil {
		s.OnTorrent(t)
	}
	s.log.Debug("ingested", "infohash", key, "name", t.Name)
	return t, nil
}
