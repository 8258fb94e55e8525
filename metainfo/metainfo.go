// Package metainfo interprets decoded bencode trees as torrent
// metadata.
package metainfo

import (
	"crypto/sha1"
	"fmt"
	"os"
	"strings"
	"time"

	bencode "src.userspace.com.au/go-bencode"
)

// Torrent is the decoded metadata for persistent storage.
type Torrent struct {
	ID          int       `json:"-"`
	Infohash    Infohash  `json:"infohash"`
	Name        string    `json:"name"`
	Announce    string    `json:"announce,omitempty"`
	Files       []File    `json:"files" db:"-"`
	Size        int64     `json:"size"`
	PieceLength int64     `json:"piece_length"`
	Comment     string    `json:"comment,omitempty"`
	Created     time.Time `json:"created"`
	Seen        time.Time `json:"seen"`
	Tags        []string  `json:"tags" db:"-"`
}

type File struct {
	ID        int    `json:"-"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	TorrentID int    `json:"torrent_id" db:"torrent_id"`
}

// Parse decodes a whole .torrent file.
func Parse(data []byte) (*Torrent, error) {
	o, err := bencode.Decode(data)
	if err != nil {
		return nil, err
	}
	root, ok := o.AsDict()
	if !ok {
		return nil, fmt.Errorf("metainfo: not a dict")
	}
	info, ok := root["info"]
	if !ok {
		return nil, fmt.Errorf("metainfo: missing info dict")
	}

	t, err := FromObject(info)
	if err != nil {
		return nil, err
	}

	if ann, ok := stringField(root, "announce"); ok {
		t.Announce = ann
	}
	if c, ok := stringField(root, "comment"); ok {
		t.Comment = c
	}
	if ts, ok := intField(root, "creation date"); ok {
		t.Created = time.Unix(ts, 0)
	}
	return t, nil
}

// FromMetadata builds a Torrent from raw info-dict bytes exchanged on
// the wire, verifying them against the expected infohash.
func FromMetadata(ih Infohash, md []byte) (*Torrent, error) {
	sum := sha1.Sum(md)
	if !ih.Equal(sum[:]) {
		return nil, fmt.Errorf("metainfo: infohash does not match metadata")
	}
	info, err := bencode.Decode(md)
	if err != nil {
		return nil, err
	}
	t, err := FromObject(info)
	if err != nil {
		return nil, err
	}
	t.Infohash = ih
	return t, nil
}

// FromObject builds a Torrent from a decoded info dict. The infohash
// is the SHA-1 of the dict's canonical encoding.
func FromObject(info bencode.Object) (*Torrent, error) {
	dict, ok := info.AsDict()
	if !ok {
		return nil, fmt.Errorf("metainfo: info is not a dict")
	}

	enc, err := bencode.Encode(info)
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum(enc)

	// Get the directory or advisory filename
	name, ok := stringField(dict, "name")
	if !ok {
		return nil, fmt.Errorf("metainfo: missing name")
	}

	t := &Torrent{
		Infohash: Infohash(sum[:]),
		Name:     name,
	}

	if n, ok := intField(dict, "piece length"); ok {
		t.PieceLength = n
	}

	if files, ok := listField(dict, "files"); ok {
		// Multiple file mode
		t.Files = make([]File, 0, len(files))

		// Files is a list of dicts
		for _, item := range files {
			fd, ok := item.AsDict()
			if !ok {
				return nil, fmt.Errorf("metainfo: file entry is not a dict")
			}
			length, ok := intField(fd, "length")
			if !ok {
				return nil, fmt.Errorf("metainfo: file entry missing length")
			}

			// Paths is a list of strings
			paths, ok := listField(fd, "path")
			if !ok {
				return nil, fmt.Errorf("metainfo: file entry missing path")
			}
			parts := make([]string, len(paths))
			for i, p := range paths {
				s, ok := p.AsString()
				if !ok {
					return nil, fmt.Errorf("metainfo: path element is not a string")
				}
				parts[i] = s
			}

			t.Files = append(t.Files, File{
				Path: strings.Join(parts, string(os.PathSeparator)),
				Size: length,
			})
			// Ensure the torrent size totals all files'
			t.Size += length
		}
	} else if length, ok := intField(dict, "length"); ok {
		// Single file mode
		t.Size = length
	} else {
		return nil, fmt.Errorf("metainfo: found neither length or files")
	}
	return t, nil
}

func stringField(d map[string]bencode.Object, key string) (string, bool) {
	o, ok := d[key]
	if !ok {
		return "", false
	}
	return o.AsString()
}

func intField(d map[string]bencode.Object, key string) (int64, bool) {
	o, ok := d[key]
	if !ok {
		return 0, false
	}
	return o.AsInteger()
}

func listField(d map[string]bencode.Object, key string) ([]bencode.Object, bool) {
	o, ok := d[key]
	if !ok {
		return nil, false
	}
	return o.AsList()
}
