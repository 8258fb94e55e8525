// Package store persists parsed torrents.
package store

import (
	"strings"

	"src.userspace.com.au/go-bencode/metainfo"
)

// TorrentStore is what the scanner and CLI need from a backend.
type TorrentStore interface {
	SaveTorrent(*metainfo.Torrent) error
	TorrentByHash(metainfo.Infohash) (*metainfo.Torrent, error)
	TorrentsByName(query string, offset, limit int) ([]*metainfo.Torrent, error)
	TorrentsByTag(tag string, offset, limit int) ([]*metainfo.Torrent, error)
	Close() error
}

// New selects a backend from the DSN. Postgres URLs get the pgx
// backend, anything else is treated as a SQLite DSN.
func New(dsn string) (TorrentStore, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPgsqlStore(dsn)
	}
	return NewSqliteStore(dsn)
}
