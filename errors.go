package bencode

import (
	"errors"
	"fmt"
)

// Decode failures. Use errors.Is to test which condition a decode
// returned; the error itself is a *DecodeError carrying the offset.
var (
	// ErrObjectNotFound means the input ran out where an object was
	// expected. At the top level this can mean "need more bytes".
	ErrObjectNotFound = errors.New("bencode: no object found")

	// ErrUnexpectedByte means the next byte starts no known object.
	ErrUnexpectedByte = errors.New("bencode: unexpected byte")

	// ErrMalformedInteger means an integer was not terminated by 'e'.
	ErrMalformedInteger = errors.New("bencode: malformed integer")

	// ErrMalformedString means a string length was not followed by ':'.
	ErrMalformedString = errors.New("bencode: malformed string")

	// ErrLengthMismatch means a string declared more bytes than the
	// input holds.
	ErrLengthMismatch = errors.New("bencode: string length mismatch")

	// ErrMalformedList means a list was not terminated by 'e'.
	ErrMalformedList = errors.New("bencode: malformed list")

	// ErrMalformedDict means a dict was not terminated by 'e'.
	ErrMalformedDict = errors.New("bencode: malformed dict")

	// ErrInvalidDictKey means a dict key decoded to a non-string.
	ErrInvalidDictKey = errors.New("bencode: invalid dict key")

	// ErrIntegerOverflow means an integer or length does not fit the
	// signed 64-bit range.
	ErrIntegerOverflow = errors.New("bencode: integer overflow")
)

// DecodeError wraps one of the sentinel errors above with the byte
// offset at which decoding failed.
type DecodeError struct {
	Err    error
	Offset int64
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }
