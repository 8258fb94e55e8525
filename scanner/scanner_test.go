package scanner

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	bencode "src.userspace.com.au/go-bencode"
	"src.userspace.com.au/go-bencode/metainfo"
	"src.userspace.com.au/logger"
)

type memStore struct {
	saved []*metainfo.Torrent
}

func (m *memStore) SaveTorrent(t *metainfo.Torrent) error {
	m.saved = append(m.saved, t)
	return nil
}

func quietLogger() logger.Logger {
	return logger.New(&logger.Options{Name: "test", Output: ioutil.Discard})
}

func torrentFile(t *testing.T, dir, base, name string, size int64) string {
	t.Helper()
	root := bencode.Dict(map[string]bencode.Object{
		"announce": bencode.String("http://tracker.example.com/announce"),
		"info": bencode.Dict(map[string]bencode.Object{
			"name":         bencode.String(name),
			"length":       bencode.Integer(size),
			"piece length": bencode.Integer(16384),
		}),
	})
	data, err := bencode.Encode(root)
	if err != nil {
		t.Fatalf("failed to encode torrent: %s", err)
	}
	path := filepath.Join(dir, base)
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %s", path, err)
	}
	return path
}

func testDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "scanner")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestScanIngests(t *testing.T) {
	dir := testDir(t)
	defer os.RemoveAll(dir)

	torrentFile(t, dir, "a.torrent", "some video.mkv", 100)
	torrentFile(t, dir, "b.torrent", "track.flac", 200)
	// Not a torrent file, must be ignored
	if err := ioutil.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	st := &memStore{}
	s, err := New(SetStore(st), SetLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	count, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %s", err)
	}
	if count != 2 {
		t.Errorf("Scan => %d, expected 2", count)
	}
	if len(st.saved) != 2 {
		t.Fatalf("store holds %d torrents, expected 2", len(st.saved))
	}

	for _, tor := range st.saved {
		if tor.Name == "some video.mkv" {
			found := false
			for _, tag := range tor.Tags {
				if tag == "video" {
					found = true
				}
			}
			if !found {
				t.Errorf("expected video tag, got %v", tor.Tags)
			}
		}
	}
}

func TestScanDedups(t *testing.T) {
	dir := testDir(t)
	defer os.RemoveAll(dir)

	// Same info dict, so the same infohash
	torrentFile(t, dir, "a.torrent", "dup.iso", 100)
	torrentFile(t, dir, "b.torrent", "dup.iso", 100)

	st := &memStore{}
	s, err := New(SetStore(st), SetLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	count, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %s", err)
	}
	if count != 1 {
		t.Errorf("Scan => %d, expected 1", count)
	}
	if len(st.saved) != 1 {
		t.Errorf("store holds %d torrents, expected 1", len(st.saved))
	}
}

func TestScanSkipsTags(t *testing.T) {
	dir := testDir(t)
	defer os.RemoveAll(dir)

	torrentFile(t, dir, "a.torrent", "track.flac", 100)
	torrentFile(t, dir, "b.torrent", "book.epub", 100)

	st := &memStore{}
	s, err := New(
		SetStore(st),
		SetLogger(quietLogger()),
		SetSkipTags([]string{"flac"}),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	count, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %s", err)
	}
	if count != 1 {
		t.Errorf("Scan => %d, expected 1", count)
	}
	if len(st.saved) != 1 || st.saved[0].Name != "book.epub" {
		t.Errorf("store => %v, expected only the ebook", st.saved)
	}
}

func TestScanSkipsMalformed(t *testing.T) {
	dir := testDir(t)
	defer os.RemoveAll(dir)

	if err := ioutil.WriteFile(filepath.Join(dir, "bad.torrent"), []byte("i42"), 0644); err != nil {
		t.Fatal(err)
	}
	torrentFile(t, dir, "good.torrent", "fine.iso", 100)

	st := &memStore{}
	s, err := New(SetStore(st), SetLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	count, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan should keep going past malformed files, got %s", err)
	}
	if count != 1 {
		t.Errorf("Scan => %d, expected 1", count)
	}
}

func TestScanUserTags(t *testing.T) {
	dir := testDir(t)
	defer os.RemoveAll(dir)

	torrentFile(t, dir, "a.torrent", "holiday.photos", 100)

	var got *metainfo.Torrent
	s, err := New(
		SetLogger(quietLogger()),
		SetTag("photos", `\.photos$`),
		SetOnTorrent(func(t *metainfo.Torrent) { got = t }),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	if _, err := s.Scan(context.Background(), dir); err != nil {
		t.Fatalf("Scan failed: %s", err)
	}
	if got == nil {
		t.Fatal("OnTorrent was not called")
	}
	found := false
	for _, tag := range got.Tags {
		if tag == "photos" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected photos tag, got %v", got.Tags)
	}
}

func TestScanCancelled(t *testing.T) {
	dir := testDir(t)
	defer os.RemoveAll(dir)

	torrentFile(t, dir, "a.torrent", "fine.iso", 100)

	s, err := New(SetLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scan(ctx, dir); err == nil {
		t.Error("Scan with a cancelled context should fail")
	}
}
