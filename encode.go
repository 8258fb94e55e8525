package bencode

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidObject is returned when encoding the zero Object.
var ErrInvalidObject = errors.New("bencode: invalid object to encode")

// Encode encodes an object to canonical bencoded form. Dict keys are
// emitted in sorted byte order so equal trees encode to equal bytes.
func Encode(o Object) ([]byte, error) {
	return appendObject(nil, o)
}

func appendObject(out []byte, o Object) ([]byte, error) {
	switch o.kind {
	case KindInteger:
		return append(out, fmt.Sprintf("i%de", o.num)...), nil
	case KindString:
		return appendString(out, o.str), nil
	case KindList:
		return appendList(out, o.list)
	case KindDict:
		return appendDict(out, o.dict)
	}
	return nil, ErrInvalidObject
}

func appendString(out []byte, s string) []byte {
	out = append(out, fmt.Sprintf("%d:", len(s))...)
	return append(out, s...)
}

func appendList(out []byte, list []Object) ([]byte, error) {
	out = append(out, 'l')
	for _, item := range list {
		var err error
		out, err = appendObject(out, item)
		if err != nil {
			return nil, err
		}
	}
	return append(out, 'e'), nil
}

func appendDict(out []byte, dict map[string]Object) ([]byte, error) {
	out = append(out, 'd')

	// Sort keys
	keys := make(sort.StringSlice, len(dict))
	i := 0
	for key := range dict {
		keys[i] = key
		i++
	}
	keys.Sort()

	for _, key := range keys {
		out = appendString(out, key)
		var err error
		out, err = appendObject(out, dict[key])
		if err != nil {
			return nil, err
		}
	}
	return append(out, 'e'), nil
}
