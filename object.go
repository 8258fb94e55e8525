package bencode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by an Object.
type Kind int

const (
	KindInvalid Kind = iota
	KindInteger
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	}
	return "invalid"
}

// Object is a single decoded bencode value: an integer, a byte string,
// a list or a dict. The zero Object is invalid.
//
// Byte strings are held as Go strings, so binary keys hash and compare
// over their raw bytes.
type Object struct {
	kind Kind
	num  int64
	str  string
	list []Object
	dict map[string]Object
}

// Integer returns an integer object.
func Integer(v int64) Object {
	return Object{kind: KindInteger, num: v}
}

// String returns a byte string object. The string need not be valid text.
func String(s string) Object {
	return Object{kind: KindString, str: s}
}

// List returns a list object holding items in order.
func List(items ...Object) Object {
	return Object{kind: KindList, list: items}
}

// Dict returns a dict object holding pairs.
func Dict(pairs map[string]Object) Object {
	if pairs == nil {
		pairs = make(map[string]Object)
	}
	return Object{kind: KindDict, dict: pairs}
}

// Kind reports the variant held by o.
func (o Object) Kind() Kind { return o.kind }

// AsInteger returns the integer value, or false when o is not an integer.
func (o Object) AsInteger() (int64, bool) {
	return o.num, o.kind == KindInteger
}

// AsString returns the byte string value, or false when o is not a string.
func (o Object) AsString() (string, bool) {
	return o.str, o.kind == KindString
}

// AsList returns the underlying list, or false when o is not a list.
func (o Object) AsList() ([]Object, bool) {
	return o.list, o.kind == KindList
}

// AsDict returns the underlying map, or false when o is not a dict.
func (o Object) AsDict() (map[string]Object, bool) {
	return o.dict, o.kind == KindDict
}

// Equal reports structural equality. List order is significant, dict
// iteration order is not.
func (o Object) Equal(other Object) bool {
	if o.kind != other.kind {
		return false
	}
	switch o.kind {
	case KindInteger:
		return o.num == other.num
	case KindString:
		return o.str == other.str
	case KindList:
		if len(o.list) != len(other.list) {
			return false
		}
		for i := range o.list {
			if !o.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(o.dict) != len(other.dict) {
			return false
		}
		for k, v := range o.dict {
			ov, ok := other.dict[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	}
	return true
}

// String renders o for debugging. The rendering is lossy for non-text
// bytes and must not be used for comparison or hashing.
func (o Object) String() string {
	switch o.kind {
	case KindInteger:
		return strconv.FormatInt(o.num, 10)
	case KindString:
		return strconv.Quote(o.str)
	case KindList:
		items := make([]string, len(o.list))
		for i, item := range o.list {
			items[i] = item.String()
		}
		return "[" + strings.Join(items, " ") + "]"
	case KindDict:
		keys := make([]string, 0, len(o.dict))
		for k := range o.dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s:%s", strconv.Quote(k), o.dict[k])
		}
		return "{" + strings.Join(pairs, " ") + "}"
	}
	return "<invalid>"
}
