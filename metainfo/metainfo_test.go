package metainfo

import (
	"crypto/sha1"
	"os"
	"strings"
	"testing"
	"time"

	bencode "src.userspace.com.au/go-bencode"
)

func singleFileInfo() bencode.Object {
	return bencode.Dict(map[string]bencode.Object{
		"name":         bencode.String("ubuntu.iso"),
		"length":       bencode.Integer(123456789),
		"piece length": bencode.Integer(262144),
		"pieces":       bencode.String("\x01\x02\x03"),
	})
}

func multiFileInfo() bencode.Object {
	return bencode.Dict(map[string]bencode.Object{
		"name":         bencode.String("album"),
		"piece length": bencode.Integer(16384),
		"files": bencode.List(
			bencode.Dict(map[string]bencode.Object{
				"length": bencode.Integer(100),
				"path":   bencode.List(bencode.String("cd1"), bencode.String("track1.flac")),
			}),
			bencode.Dict(map[string]bencode.Object{
				"length": bencode.Integer(200),
				"path":   bencode.List(bencode.String("cd1"), bencode.String("track2.flac")),
			}),
		),
	})
}

func torrentBytes(t *testing.T, info bencode.Object) []byte {
	t.Helper()
	root := bencode.Dict(map[string]bencode.Object{
		"announce":      bencode.String("http://tracker.example.com/announce"),
		"comment":       bencode.String("test torrent"),
		"creation date": bencode.Integer(1500000000),
		"info":          info,
	})
	data, err := bencode.Encode(root)
	if err != nil {
		t.Fatalf("failed to encode torrent: %s", err)
	}
	return data
}

func TestParseSingleFile(t *testing.T) {
	tor, err := Parse(torrentBytes(t, singleFileInfo()))
	if err != nil {
		t.Fatalf("Parse failed with %s", err)
	}

	if tor.Name != "ubuntu.iso" {
		t.Errorf("Name => %q, expected %q", tor.Name, "ubuntu.iso")
	}
	if tor.Size != 123456789 {
		t.Errorf("Size => %d, expected 123456789", tor.Size)
	}
	if tor.PieceLength != 262144 {
		t.Errorf("PieceLength => %d, expected 262144", tor.PieceLength)
	}
	if len(tor.Files) != 0 {
		t.Errorf("Files => %d entries, expected none", len(tor.Files))
	}
	if tor.Announce != "http://tracker.example.com/announce" {
		t.Errorf("Announce => %q", tor.Announce)
	}
	if tor.Comment != "test torrent" {
		t.Errorf("Comment => %q", tor.Comment)
	}
	if !tor.Created.Equal(time.Unix(1500000000, 0)) {
		t.Errorf("Created => %s", tor.Created)
	}

	// Infohash is the SHA-1 of the canonically encoded info dict
	enc, err := bencode.Encode(singleFileInfo())
	if err != nil {
		t.Fatal(err)
	}
	sum := sha1.Sum(enc)
	if !tor.Infohash.Equal(sum[:]) {
		t.Errorf("Infohash => %s, expected %s", tor.Infohash, Infohash(sum[:]))
	}
}

func TestParseMultiFile(t *testing.T) {
	tor, err := Parse(torrentBytes(t, multiFileInfo()))
	if err != nil {
		t.Fatalf("Parse failed with %s", err)
	}

	if tor.Name != "album" {
		t.Errorf("Name => %q, expected %q", tor.Name, "album")
	}
	if tor.Size != 300 {
		t.Errorf("Size => %d, expected 300", tor.Size)
	}
	if len(tor.Files) != 2 {
		t.Fatalf("Files => %d entries, expected 2", len(tor.Files))
	}

	sep := string(os.PathSeparator)
	wantPath := strings.Join([]string{"cd1", "track1.flac"}, sep)
	if tor.Files[0].Path != wantPath {
		t.Errorf("Files[0].Path => %q, expected %q", tor.Files[0].Path, wantPath)
	}
	if tor.Files[0].Size != 100 || tor.Files[1].Size != 200 {
		t.Errorf("file sizes => %d, %d", tor.Files[0].Size, tor.Files[1].Size)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   bencode.Object
	}{
		{name: "not a dict", in: bencode.Integer(5)},
		{name: "missing info", in: bencode.Dict(nil)},
		{name: "info not a dict", in: bencode.Dict(map[string]bencode.Object{
			"info": bencode.String("x"),
		})},
		{name: "missing name", in: bencode.Dict(map[string]bencode.Object{
			"info": bencode.Dict(map[string]bencode.Object{
				"length": bencode.Integer(1),
			}),
		})},
		{name: "neither length nor files", in: bencode.Dict(map[string]bencode.Object{
			"info": bencode.Dict(map[string]bencode.Object{
				"name": bencode.String("x"),
			}),
		})},
	}

	for _, tt := range tests {
		data, err := bencode.Encode(tt.in)
		if err != nil {
			t.Fatalf("%s: encode failed: %s", tt.name, err)
		}
		if _, err := Parse(data); err == nil {
			t.Errorf("%s: Parse should have failed", tt.name)
		}
	}
}

func TestFromMetadata(t *testing.T) {
	md, err := bencode.Encode(singleFileInfo())
	if err != nil {
		t.Fatal(err)
	}
	sum := sha1.Sum(md)

	tor, err := FromMetadata(Infohash(sum[:]), md)
	if err != nil {
		t.Fatalf("FromMetadata failed with %s", err)
	}
	if tor.Name != "ubuntu.iso" {
		t.Errorf("Name => %q", tor.Name)
	}
	if !tor.Infohash.Equal(sum[:]) {
		t.Errorf("Infohash => %s", tor.Infohash)
	}

	// Wrong hash is rejected
	bad := make(Infohash, ihLength)
	if _, err := FromMetadata(bad, md); err == nil {
		t.Error("FromMetadata should reject a mismatched infohash")
	}
}
