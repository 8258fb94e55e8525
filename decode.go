package bencode

import (
	"bufio"
	"bytes"
	"io"
	"math"
)

// Preallocation cap for string payloads so a hostile length prefix
// cannot allocate more than the input can actually supply.
const stringPreallocLimit = 64 << 10

// Decoder reads bencoded objects from a byte stream. It consumes the
// stream one byte at a time with a single byte of lookahead and never
// requires random access.
type Decoder struct {
	r       io.ByteReader
	peeked  byte
	havePk  bool
	offset  int64
	readErr error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// Decode reads and returns the next object from the stream. The first
// error at any depth aborts the whole decode; no partial tree is
// returned. Trailing bytes are left unread for a subsequent call.
func (d *Decoder) Decode() (Object, error) {
	return d.decodeObject()
}

// Decode decodes a single object from data. Trailing bytes are ignored.
func Decode(data []byte) (Object, error) {
	return NewDecoder(bytes.NewReader(data)).Decode()
}

// peek returns the next byte without consuming it.
func (d *Decoder) peek() (byte, bool) {
	if d.havePk {
		return d.peeked, true
	}
	if d.readErr != nil {
		return 0, false
	}
	c, err := d.r.ReadByte()
	if err != nil {
		d.readErr = err
		return 0, false
	}
	d.peeked = c
	d.havePk = true
	return c, true
}

// next consumes and returns the next byte.
func (d *Decoder) next() (byte, bool) {
	c, ok := d.peek()
	if !ok {
		return 0, false
	}
	d.havePk = false
	d.offset++
	return c, true
}

// skip consumes the next byte only when it matches c.
func (d *Decoder) skip(c byte) bool {
	if b, ok := d.peek(); ok && b == c {
		d.next()
		return true
	}
	return false
}

// fail wraps err with the current offset. A read failure other than
// end of input takes precedence over the structural error.
func (d *Decoder) fail(err error) error {
	if d.readErr != nil && d.readErr != io.EOF {
		return d.readErr
	}
	return &DecodeError{Err: err, Offset: d.offset}
}

// decodeObject dispatches on one byte of lookahead.
func (d *Decoder) decodeObject() (Object, error) {
	c, ok := d.peek()
	if !ok {
		return Object{}, d.fail(ErrObjectNotFound)
	}
	switch {
	case c == 'd':
		return d.decodeDict()
	case c == 'i':
		return d.decodeInteger()
	case c == 'l':
		return d.decodeList()
	case c >= '0' && c <= '9':
		return d.decodeString()
	}
	return Object{}, d.fail(ErrUnexpectedByte)
}

// decodeInteger reads i<digits>e with an optional leading minus. Zero
// digits decode as 0. Values outside the signed 64-bit range are
// rejected rather than wrapped.
func (d *Decoder) decodeInteger() (Object, error) {
	d.next() // 'i'
	neg := d.skip('-')
	mag, err := d.readUint()
	if err != nil {
		return Object{}, err
	}
	if !d.skip('e') {
		return Object{}, d.fail(ErrMalformedInteger)
	}
	if neg {
		if mag > 1<<63 {
			return Object{}, d.fail(ErrIntegerOverflow)
		}
		if mag == 1<<63 {
			return Integer(math.MinInt64), nil
		}
		return Integer(-int64(mag)), nil
	}
	if mag > math.MaxInt64 {
		return Object{}, d.fail(ErrIntegerOverflow)
	}
	return Integer(int64(mag)), nil
}

// decodeString reads <digits>:<bytes>. The payload is copied verbatim,
// with no escaping or text interpretation.
func (d *Decoder) decodeString() (Object, error) {
	n, err := d.readUint()
	if err != nil {
		return Object{}, err
	}
	if !d.skip(':') {
		return Object{}, d.fail(ErrMalformedString)
	}
	capHint := n
	if capHint > stringPreallocLimit {
		capHint = stringPreallocLimit
	}
	buf := make([]byte, 0, capHint)
	for i := uint64(0); i < n; i++ {
		c, ok := d.next()
		if !ok {
			return Object{}, d.fail(ErrLengthMismatch)
		}
		buf = append(buf, c)
	}
	return String(string(buf)), nil
}

// decodeList reads l<objects>e, preserving element order.
func (d *Decoder) decodeList() (Object, error) {
	d.next() // 'l'
	var list []Object
	for {
		c, ok := d.peek()
		if !ok || c == 'e' {
			break
		}
		item, err := d.decodeObject()
		if err != nil {
			return Object{}, err
		}
		list = append(list, item)
	}
	if !d.skip('e') {
		return Object{}, d.fail(ErrMalformedList)
	}
	return Object{kind: KindList, list: list}, nil
}

// decodeDict reads d<string object>e pairs. Keys must decode to
// strings; a duplicate key keeps the last value.
func (d *Decoder) decodeDict() (Object, error) {
	d.next() // 'd'
	dict := make(map[string]Object)
	for {
		c, ok := d.peek()
		if !ok || c == 'e' {
			break
		}
		key, err := d.decodeObject()
		if err != nil {
			return Object{}, err
		}
		ks, ok := key.AsString()
		if !ok {
			return Object{}, d.fail(ErrInvalidDictKey)
		}
		val, err := d.decodeObject()
		if err != nil {
			return Object{}, err
		}
		dict[ks] = val
	}
	if !d.skip('e') {
		return Object{}, d.fail(ErrMalformedDict)
	}
	return Object{kind: KindDict, dict: dict}, nil
}

// readUint accumulates a run of decimal digits. An empty run yields 0;
// the caller's terminator check reports that when it matters.
func (d *Decoder) readUint() (uint64, error) {
	var n uint64
	for {
		c, ok := d.peek()
		if !ok || c < '0' || c > '9' {
			return n, nil
		}
		d.next()
		digit := uint64(c - '0')
		if n > (math.MaxUint64-digit)/10 {
			return 0, d.fail(ErrIntegerOverflow)
		}
		n = n*10 + digit
	}
}
