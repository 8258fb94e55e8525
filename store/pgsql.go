package store

import (
	"fmt"
	"time"

	"github.com/jackc/pgx"
	"src.userspace.com.au/go-bencode/metainfo"
)

const pgsqlSchema = `
create table if not exists torrents (
	id serial primary key,
	infohash bytea unique not null,
	name text not null,
	size bigint not null,
	seen timestamptz not null
);
create index if not exists torrents_name on torrents (name);

create table if not exists files (
	id serial primary key,
	torrent_id integer not null references torrents (id) on delete cascade,
	path text not null,
	size bigint not null
);

create table if not exists tags (
	id serial primary key,
	name text unique not null
);

create table if not exists tags_torrents (
	tag_id integer not null references tags (id) on delete cascade,
	torrent_id integer not null references torrents (id) on delete cascade,
	primary key (tag_id, torrent_id)
);
`

// PgsqlStore is a TorrentStore backed by PostgreSQL
type PgsqlStore struct {
	*pgx.ConnPool
}

// NewPgsqlStore connects and initializes a new store
func NewPgsqlStore(dsn string) (*PgsqlStore, error) {
	cfg, err := pgx.ParseURI(dsn)
	if err != nil {
		return nil, err
	}
	c, err := pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: cfg, MaxConnections: 10})
	if err != nil {
		return nil, err
	}

	s := &PgsqlStore{c}

	err = s.migrate()
	if err != nil {
		return nil, err
	}

	err = s.prepareStatements()
	if err != nil {
		return nil, err
	}

	return s, err
}

func (s *PgsqlStore) Close() error {
	s.ConnPool.Close()
	return nil
}

// SaveTorrent implements TorrentStore
func (s *PgsqlStore) SaveTorrent(t *metainfo.Torrent) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seen := t.Seen
	if seen.IsZero() {
		seen = time.Now()
	}

	var torrentID int
	err = tx.QueryRow("insertTorrent", []byte(t.Infohash), t.Name, t.Size, seen).Scan(&torrentID)
	if err != nil {
		return fmt.Errorf("insertTorrent: %s", err)
	}

	// Write tags
	for _, tag := range t.Tags {
		var tagID int
		if err = tx.QueryRow("insertTag", tag).Scan(&tagID); err != nil {
			return fmt.Errorf("insertTag: %s", err)
		}
		if _, err = tx.Exec("insertTagTorrent", tagID, torrentID); err != nil {
			return fmt.Errorf("insertTagTorrent: %s", err)
		}
	}

	// Write files
	for _, f := range t.Files {
		if _, err = tx.Exec("insertFile", torrentID, f.Path, f.Size); err != nil {
			return fmt.Errorf("insertFile: %s", err)
		}
	}

	return tx.Commit()
}

// TorrentByHash implements TorrentStore. It returns nil when the
// infohash is unknown.
func (s *PgsqlStore) TorrentByHash(ih metainfo.Infohash) (*metainfo.Torrent, error) {
	rows, err := s.Query("getTorrent", []byte(ih))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	torrents, err := s.fetchTorrents(rows)
	if err != nil {
		return nil, err
	}
	if len(torrents) == 0 {
		return nil, nil
	}
	return torrents[0], nil
}

// TorrentsByName implements TorrentStore
func (s *PgsqlStore) TorrentsByName(query string, offset, limit int) ([]*metainfo.Torrent, error) {
	rows, err := s.Query("searchTorrents", fmt.Sprintf("%%%s%%", query), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.fetchTorrents(rows)
}

// TorrentsByTag implements TorrentStore
func (s *PgsqlStore) TorrentsByTag(tag string, offset, limit int) ([]*metainfo.Torrent, error) {
	rows, err := s.Query("torrentsByTag", tag, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.fetchTorrents(rows)
}

func (s *PgsqlStore) fetchTorrents(rows *pgx.Rows) (torrents []*metainfo.Torrent, err error) {
	for rows.Next() {
		var t metainfo.Torrent
		var ih []byte
		err = rows.Scan(&t.ID, &ih, &t.Name, &t.Size, &t.Seen)
		if err != nil {
			return nil, err
		}
		t.Infohash = metainfo.Infohash(ih)
		torrents = append(torrents, &t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	// The row sets for files and tags need their own queries, after
	// the torrent rows are fully consumed
	for _, t := range torrents {
		if err = s.fetchFiles(t); err != nil {
			return nil, err
		}
		if err = s.fetchTags(t); err != nil {
			return nil, err
		}
	}
	return torrents, nil
}

func (s *PgsqlStore) fetchFiles(t *metainfo.Torrent) error {
	rows, err := s.Query("selectFiles", t.ID)
	if err != nil {
		return fmt.Errorf("failed to select files: %s", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f metainfo.File
		if err = rows.Scan(&f.ID, &f.TorrentID, &f.Path, &f.Size); err != nil {
			return fmt.Errorf("failed to build file: %s", err)
		}
		t.Files = append(t.Files, f)
	}
	return rows.Err()
}

func (s *PgsqlStore) fetchTags(t *metainfo.Torrent) error {
	rows, err := s.Query("selectTags", t.ID)
	if err != nil {
		return fmt.Errorf("failed to select tags: %s", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tg string
		if err = rows.Scan(&tg); err != nil {
			return fmt.Errorf("failed to build tag: %s", err)
		}
		t.Tags = append(t.Tags, tg)
	}
	return rows.Err()
}

func (s *PgsqlStore) migrate() error {
	_, err := s.Exec(pgsqlSchema)
	return err
}

func (s *PgsqlStore) prepareStatements() error {
	var err error
	if _, err = s.Prepare("insertTorrent",
		`insert into torrents (infohash, name, size, seen)
		values ($1, $2, $3, $4)
		on conflict (infohash) do update set name = $2, size = $3, seen = $4
		returning id`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("getTorrent",
		`select id, infohash, name, size, seen
		from torrents where infohash = $1 limit 1`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("searchTorrents",
		`select id, infohash, name, size, seen
		from torrents
		where name ilike $1
		order by seen desc
		limit $2 offset $3`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("torrentsByTag",
		`select t.id, t.infohash, t.name, t.size, t.seen
		from torrents t
		inner join tags_torrents tt on tt.torrent_id = t.id
		inner join tags tg on tg.id = tt.tag_id
		where tg.name = $1
		order by t.seen desc
		limit $2 offset $3`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("selectFiles",
		`select id, torrent_id, path, size
		from files
		where torrent_id = $1
		order by path asc`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("selectTags",
		`select name
		from tags t
		inner join tags_torrents tt on t.id = tt.tag_id
		where tt.torrent_id = $1`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("insertFile",
		`insert into files (torrent_id, path, size)
		values ($1, $2, $3)`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("insertTag",
		`insert into tags (name) values ($1)
		on conflict (name) do update set name = excluded.name
		returning id`,
	); err != nil {
		return err
	}

	if _, err = s.Prepare("insertTagTorrent",
		`insert into tags_torrents (tag_id, torrent_id)
		values ($1, $2)
		on conflict do nothing`,
	); err != nil {
		return err
	}

	return nil
}
