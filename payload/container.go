// Package payload defines the container moved by one optical transfer.
//
// A Container is either a named file or clipboard text. Its body may be
// stored zlib-compressed; Decompress restores it in place.
package payload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

// ClipboardName is the sentinel name carried by clipboard transfers.
const ClipboardName = "clipboard.txt"

// MaxBodySize bounds a decompressed body (64 MiB).
const MaxBodySize = 64 * 1024 * 1024

var (
	// ErrCorruptPayload indicates a reassembled payload that cannot be decoded.
	// Fatal for the transfer that produced it.
	ErrCorruptPayload = errors.New("corrupt payload")

	// ErrNotText is returned by Text for a body that is not valid UTF-8.
	ErrNotText = errors.New("payload is not UTF-8 text")
)

// Container is the logical payload of one transfer.
type Container struct {
	// Name is the original file name, or ClipboardName for text.
	Name string
	// Body is the payload, compressed when Compressed is set.
	Body []byte
	// Clipboard marks text destined for a text sink rather than a file.
	Clipboard bool
	// Compressed is true while Body holds a zlib stream.
	Compressed bool
}

// NewFile creates an uncompressed file container.
func NewFile(name string, body []byte) *Container {
	return &Container{Name: name, Body: body}
}

// NewText creates an uncompressed clipboard container.
func NewText(text string) *Container {
	return &Container{
		Name:      ClipboardName,
		Body:      []byte(text),
		Clipboard: true,
	}
}

// IsClipboard reports whether the container is text for a text sink.
func (c *Container) IsClipboard() bool {
	return c.Clipboard
}

// Size returns the current body length in bytes.
func (c *Container) Size() int {
	return len(c.Body)
}

// Compress replaces Body with its zlib encoding.
// No-op when the body is already compressed.
func (c *Container) Compress() error {
	if c.Compressed {
		return nil
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return fmt.Errorf("payload: create compressor: %w", err)
	}
	if _, err := w.Write(c.Body); err != nil {
		return fmt.Errorf("payload: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("payload: compress: %w", err)
	}

	c.Body = buf.Bytes()
	c.Compressed = true
	return nil
}

// Decompress replaces Body with its decoded form.
// No-op when the body is not compressed. A bad header, truncated stream or
// checksum mismatch yields an error wrapping ErrCorruptPayload and leaves
// the container unchanged.
func (c *Container) Decompress() error {
	if !c.Compressed {
		return nil
	}

	r, err := zlib.NewReader(bytes.NewReader(c.Body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	defer func() { _ = r.Close() }()

	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if len(body) > MaxBodySize {
		return fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrCorruptPayload, MaxBodySize)
	}

	c.Body = body
	c.Compressed = false
	return nil
}

// Text returns the body as UTF-8 text.
// The body must already be decompressed.
func (c *Container) Text() (string, error) {
	if c.Compressed {
		return "", errors.New("payload: text requested from compressed body")
	}
	if !utf8.Valid(c.Body) {
		return "", ErrNotText
	}
	return string(c.Body), nil
}

// Kind returns "clipboard" or "file".
func (c *Container) Kind() string {
	if c.Clipboard {
		return "clipboard"
	}
	return "file"
}
