package payload

import (
	"errors"
	"fmt"
)

// Container encoding:
//
//	flags(1) | nameLen(1) | name(nameLen) | body
//
// flags bit 0 marks clipboard text, bit 1 a compressed body. The name is
// stored as its UTF-8 bytes.
const (
	flagClipboard  byte = 1 << 0
	flagCompressed byte = 1 << 1

	// HeaderSize is the fixed prefix before the name bytes.
	HeaderSize = 2
	// MaxNameLen is the longest name in bytes.
	MaxNameLen = 255
)

// ErrNameTooLong is returned by Marshal for names over MaxNameLen bytes.
var ErrNameTooLong = fmt.Errorf("payload: name exceeds %d bytes", MaxNameLen)

// ErrShortHeader indicates data too short to hold the name header.
var ErrShortHeader = errors.New("payload: data shorter than name header")

// Marshal encodes the container into its transfer byte form.
func (c *Container) Marshal() ([]byte, error) {
	name := []byte(c.Name)
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}

	var flags byte
	if c.Clipboard {
		flags |= flagClipboard
	}
	if c.Compressed {
		flags |= flagCompressed
	}

	out := make([]byte, 0, HeaderSize+len(name)+len(c.Body))
	out = append(out, flags, byte(len(name)))
	out = append(out, name...)
	out = append(out, c.Body...)
	return out, nil
}

// NameHeaderLen returns the number of leading encoded bytes that hold the
// header and name of c.
func (c *Container) NameHeaderLen() int {
	return HeaderSize + len(c.Name)
}

// ReadName extracts the wire name from the start of encoded data.
// It returns the wire name and the length of the header it consumed.
func ReadName(data []byte) (string, int, error) {
	if len(data) < HeaderSize {
		return "", 0, ErrShortHeader
	}
	n := int(data[1])
	end := HeaderSize + n
	if len(data) < end {
		return "", 0, ErrShortHeader
	}
	return wireNameFromBytes(data[HeaderSize:end]), end, nil
}

// Unmarshal decodes a fully reassembled transfer into a Container.
// Any decoding failure wraps ErrCorruptPayload.
func Unmarshal(data []byte) (*Container, error) {
	wire, end, err := ReadName(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	flags := data[0]
	if flags&^(flagClipboard|flagCompressed) != 0 {
		return nil, fmt.Errorf("%w: unknown flags 0x%02x", ErrCorruptPayload, flags)
	}

	name, err := DecodeName(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	body := make([]byte, len(data)-end)
	copy(body, data[end:])

	return &Container{
		Name:       name,
		Body:       body,
		Clipboard:  flags&flagClipboard != 0,
		Compressed: flags&flagCompressed != 0,
	}, nil
}
