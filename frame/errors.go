package frame

import (
	"errors"
	"fmt"
)

// ErrMalformed matches every *Error via errors.Is.
var ErrMalformed = errors.New("malformed frame")

// ErrorKind classifies frame parse failures.
type ErrorKind int

const (
	// ErrorShort indicates text shorter than the frame header plus one byte.
	ErrorShort ErrorKind = iota
	// ErrorHeader indicates header fields that are not hex integers.
	ErrorHeader
	// ErrorRange indicates a zero total or an index outside 0..total-1.
	ErrorRange
	// ErrorChunk indicates a chunk that is not an even-length hex string.
	ErrorChunk
	// ErrorName indicates a frame 0 chunk too short to hold the name header.
	ErrorName
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case ErrorShort:
		return "short"
	case ErrorHeader:
		return "header"
	case ErrorRange:
		return "range"
	case ErrorChunk:
		return "chunk"
	case ErrorName:
		return "name"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a frame parse failure. Parse failures are never fatal: the
// frame is dropped and the transfer continues.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed frame (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("malformed frame (%s): %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformed.
func (e *Error) Is(target error) bool {
	return target == ErrMalformed
}

// IsMalformed returns true if err is a frame parse failure.
func IsMalformed(err error) bool {
	var frameErr *Error
	return errors.As(err, &frameErr)
}
