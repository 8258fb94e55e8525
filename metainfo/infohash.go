package metainfo

import (
	"encoding/hex"
	"fmt"
)

const ihLength = 20

// Infohash identifies a torrent: the SHA-1 digest of the canonical
// encoding of its info dict.
type Infohash []byte

func (ih Infohash) String() string {
	return hex.EncodeToString(ih)
}

func (ih Infohash) Valid() bool {
	return len(ih) == ihLength
}

func (ih Infohash) Equal(other Infohash) bool {
	if len(ih) != len(other) {
		return false
	}
	for i := 0; i < len(ih); i++ {
		if ih[i] != other[i] {
			return false
		}
	}
	return true
}

// InfohashFromString accepts either a raw 20-byte string or its 40
// character hex form.
func InfohashFromString(s string) (Infohash, error) {
	switch len(s) {
	case ihLength:
		return Infohash([]byte(s)), nil
	case ihLength * 2:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, err
		}
		return Infohash(b), nil
	}
	return nil, fmt.Errorf("metainfo: infohash has length %d", len(s))
}
