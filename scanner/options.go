package scanner

import (
	"fmt"

	"golang.org/x/time/rate"
	"src.userspace.com.au/go-bencode/metainfo"
	"src.userspace.com.au/logger"
)

type Option func(*Scanner) error

// SetStore sets the destination for parsed torrents
func SetStore(st TorrentStore) Option {
	return func(s *Scanner) error {
		s.store = st
		return nil
	}
}

// SetLogger sets the logger
func SetLogger(l logger.Logger) Option {
	return func(s *Scanner) error {
		s.log = l
		return nil
	}
}

// SetRate limits the number of files ingested per second
func SetRate(n float64) Option {
	return func(s *Scanner) error {
		if n <= 0 {
			return fmt.Errorf("scanner: rate must be positive")
		}
		burst := int(n)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(n), burst)
		return nil
	}
}

// SetCacheSize sets the size of the seen-infohash cache
func SetCacheSize(n int) Option {
	return func(s *Scanner) error {
		if n < 1 {
			return fmt.Errorf("scanner: cache size must be positive")
		}
		s.cacheSize = n
		return nil
	}
}

// SetOnTorrent sets the callback
func SetOnTorrent(f func(*metainfo.Torrent)) Option {
	return func(s *Scanner) error {
		s.OnTorrent = f
		return nil
	}
}

// SetSkipTags sets tags of torrents to skip
func SetSkipTags(tags []string) Option {
	return func(s *Scanner) error {
		for _, t := range tags {
			s.skipTags[t] = true
		}
		return nil
	}
}

// SetTag adds or overrides a tag regexp
func SetTag(name, re string) Option {
	return func(s *Scanner) error {
		if s.userTags == nil {
			s.userTags = make(map[string]string)
		}
		s.userTags[name] = re
		return nil
	}
}
