package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"src.userspace.com.au/go-bencode/metainfo"
)

const sqliteSchema = `
create table torrents (
	id integer primary key autoincrement,
	infohash blob unique not null,
	name text not null,
	size integer not null,
	seen timestamp not null
);
create index torrents_name on torrents (name);

create table files (
	id integer primary key autoincrement,
	torrent_id integer not null references torrents (id) on delete cascade,
	path text not null,
	size integer not null
);

create table tags (
	id integer primary key autoincrement,
	name text unique not null
);

create table tags_torrents (
	tag_id integer not null references tags (id) on delete cascade,
	torrent_id integer not null references torrents (id) on delete cascade,
	primary key (tag_id, torrent_id)
);
pragma user_version = 1;
`

// SqliteStore is a TorrentStore backed by SQLite
type SqliteStore struct {
	stmts map[string]*sql.Stmt
	conn  *sql.DB
	lock  sync.RWMutex
}

// NewSqliteStore connects and initializes a new store
func NewSqliteStore(dsn string) (*SqliteStore, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %s", err)
	}

	s := &SqliteStore{conn: conn, stmts: make(map[string]*sql.Stmt)}

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

func (s *SqliteStore) Close() error {
	return s.conn.Close()
}

// SaveTorrent implements TorrentStore
func (s *SqliteStore) SaveTorrent(t *metainfo.Torrent) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("saveTorrent: %s", err)
	}
	defer tx.Rollback()

	seen := t.Seen
	if seen.IsZero() {
		seen = time.Now()
	}

	var torrentID int64
	var res sql.Result
	res, err = tx.Stmt(s.stmts["insertTorrent"]).Exec([]byte(t.Infohash), t.Name, t.Size, seen)
	if err != nil {
		return fmt.Errorf("insertTorrent: %s", err)
	}
	if torrentID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insertTorrent: %s", err)
	}

	// Write tags
	for _, tag := range t.Tags {
		if _, err = tx.Stmt(s.stmts["insertTag"]).Exec(tag); err != nil {
			return fmt.Errorf("insertTag: %s", err)
		}
		var tagID int64
		if err = tx.Stmt(s.stmts["selectTag"]).QueryRow(tag).Scan(&tagID); err != nil {
			return fmt.Errorf("selectTag: %s", err)
		}
		if _, err = tx.Stmt(s.stmts["insertTagTorrent"]).Exec(tagID, torrentID); err != nil {
			return fmt.Errorf("insertTagTorrent: %s", err)
		}
	}

	// Write files
	for _, f := range t.Files {
		if _, err := tx.Stmt(s.stmts["insertFile"]).Exec(torrentID, f.Path, f.Size); err != nil {
			return fmt.Errorf("insertFile: %s", err)
		}
	}

	return tx.Commit()
}

// TorrentByHash implements TorrentStore. It returns nil when the
// infohash is unknown.
func (s *SqliteStore) TorrentByHash(ih metainfo.Infohash) (*metainfo.Torrent, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	rows, err := s.stmts["getTorrent"].Query([]byte(ih))
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
func (s *SqliteStore) TorrentsByName(query string, offset, limit int) ([]*metainfo.Torrent, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	rows, err := s.stmts["searchTorrents"].Query(fmt.Sprintf("%%%s%%", query), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.fetchTorrents(rows)
}

// TorrentsByTag implements TorrentStore
func (s *SqliteStore) TorrentsByTag(tag string, offset, limit int) ([]*metainfo.Torrent, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	rows, err := s.stmts["torrentsByTag"].Query(tag, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.fetchTorrents(rows)
}

func (s *SqliteStore) fetchTorrents(rows *sql.Rows) (torrents []*metainfo.Torrent, err error) {
	for rows.Next() {
		var t metainfo.Torrent
		var ih []byte
		err = rows.Scan(&t.ID, &ih, &t.Name, &t.Size, &t.Seen)
		if err != nil {
			return nil, err
		}
		t.Infohash = metainfo.Infohash(ih)

		err = func() error {
			rowsf, err := s.stmts["selectFiles"].Query(t.ID)
			if err != nil {
				return fmt.Errorf("failed to select files: %s", err)
			}
			defer rowsf.Close()
			for rowsf.Next() {
				var f metainfo.File
				if err = rowsf.Scan(&f.ID, &f.TorrentID, &f.Path, &f.Size); err != nil {
					return fmt.Errorf("failed to build file: %s", err)
				}
				t.Files = append(t.Files, f)
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}

		err = func() error {
			rowst, err := s.stmts["selectTags"].Query(t.ID)
			if err != nil {
				return fmt.Errorf("failed to select tags: %s", err)
			}
			defer rowst.Close()
			for rowst.Next() {
				var tg string
				if err = rowst.Scan(&tg); err != nil {
					return fmt.Errorf("failed to build tag: %s", err)
				}
				t.Tags = append(t.Tags, tg)
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}
		torrents = append(torrents, &t)
	}
	return torrents, rows.Err()
}

func (s *SqliteStore) migrate() error {
	_, err := s.conn.Exec(`
	pragma journal_mode=wal;
	pragma temp_store=1;
	pragma foreign_keys=on;
	pragma encoding='utf-8';
	`)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRow("pragma user_version;").Scan(&version)
	if err != nil {
		return err
	}

	if version == 0 {
		_, err = tx.Exec(sqliteSchema)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SqliteStore) prepareStatements() error {
	var err error
	if s.stmts["insertTorrent"], err = s.conn.Prepare(
		`insert or replace into torrents (
			infohash, name, size, seen
		) values (
			?, ?, ?, ?
		)`,
	); err != nil {
		return err
	}

	if s.stmts["getTorrent"], err = s.conn.Prepare(
		`select id, infohash, name, size, seen
		from torrents where infohash = ? limit 1`,
	); err != nil {
		return err
	}

	if s.stmts["searchTorrents"], err = s.conn.Prepare(
		`select id, infohash, name, size, seen
		from torrents
		where name like ?
		order by seen desc
		limit ? offset ?`,
	); err != nil {
		return err
	}

	if s.stmts["torrentsByTag"], err = s.conn.Prepare(
		`select t.id, t.infohash, t.name, t.size, t.seen
		from torrents t
		inner join tags_torrents tt on tt.torrent_id = t.id
		inner join tags tg on tg.id = tt.tag_id
		where tg.name = ?
		order by t.seen desc
		limit ? offset ?`,
	); err != nil {
		return err
	}

	if s.stmts["selectFiles"], err = s.conn.Prepare(
		`select id, torrent_id, path, size
		from files
		where torrent_id = ?
		order by path asc`,
	); err != nil {
		return err
	}

	if s.stmts["selectTags"], err = s.conn.Prepare(
		`select name
		from tags t
		inner join tags_torrents tt on t.id = tt.tag_id
		where tt.torrent_id = ?`,
	); err != nil {
		return err
	}

	if s.stmts["insertFile"], err = s.conn.Prepare(
		`insert into files
		(torrent_id, path, size)
		values
		(?, ?, ?)`,
	); err != nil {
		return err
	}

	if s.stmts["insertTag"], err = s.conn.Prepare(
		`insert or ignore into tags (name) values (?)`,
	); err != nil {
		return err
	}

	if s.stmts["selectTag"], err = s.conn.Prepare(
		`select id from tags where name = ?`,
	); err != nil {
		return err
	}

	if s.stmts["insertTagTorrent"], err = s.conn.Prepare(
		`insert or ignore into tags_torrents
		(tag_id, torrent_id) values (?, ?)`,
	); err != nil {
		return err
	}

	return nil
}
