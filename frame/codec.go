// Package frame implements the text layout of optical transfer frames.
//
// A frame is a single string sized to fit one visual code:
//
//	IIII TTTT CHUNK
//
// IIII and TTTT are four uppercase hex digits holding the frame index and
// the frame count, with no separator. CHUNK is the frame's slice of the
// encoded container in uppercase hex. Uppercase hex stays inside the QR
// alphanumeric alphabet.
package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pithecene-io/qrtx/payload"
	"github.com/pithecene-io/qrtx/types"
)

const (
	// HeaderLen is the length of the index and count fields.
	HeaderLen = 8
	// fieldLen is the width of one header field.
	fieldLen = 4
	// MaxFrames is the largest frame count the header can express.
	MaxFrames = 0xFFFF
	// DefaultCapacity is the default frame text length.
	DefaultCapacity = 512
	// MinCapacity is the shortest usable frame text (header plus one byte).
	MinCapacity = HeaderLen + 2
)

var (
	// ErrChunkSize is returned by Split for a chunk size below one byte.
	ErrChunkSize = errors.New("frame: chunk size must be at least 1 byte")
	// ErrNameDoesNotFit is returned by Split when frame 0 cannot hold the
	// container's name header.
	ErrNameDoesNotFit = errors.New("frame: chunk size too small for name header")
	// ErrTooManyFrames is returned by Split when the payload needs more
	// than MaxFrames frames.
	ErrTooManyFrames = fmt.Errorf("frame: payload needs more than %d frames", MaxFrames)
)

// ChunkSizeForCapacity returns the encoded bytes one frame can carry when
// its text may be at most capacity characters.
func ChunkSizeForCapacity(capacity int) int {
	if capacity < MinCapacity {
		return 0
	}
	return (capacity - HeaderLen) / 2
}

// Count returns the number of frames needed for size encoded bytes.
func Count(size, chunkSize int) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return (size + chunkSize - 1) / chunkSize
}

// Split encodes c and cuts it into frame texts of chunkSize bytes each.
// The result depends only on c and chunkSize.
func Split(c *payload.Container, chunkSize int) ([]string, error) {
	if chunkSize < 1 {
		return nil, ErrChunkSize
	}
	if c.NameHeaderLen() > chunkSize {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrNameDoesNotFit, c.NameHeaderLen(), chunkSize)
	}

	encoded, err := c.Marshal()
	if err != nil {
		return nil, err
	}

	total := Count(len(encoded), chunkSize)
	if total > MaxFrames {
		return nil, fmt.Errorf("%w: need %d", ErrTooManyFrames, total)
	}

	frames := make([]string, 0, total)
	for i := range total {
		start := i * chunkSize
		end := min(start+chunkSize, len(encoded))
		frames = append(frames, Format(i, total, encoded[start:end]))
	}
	return frames, nil
}

// Format renders one frame text.
func Format(index, total int, chunk []byte) string {
	var b strings.Builder
	b.Grow(HeaderLen + 2*len(chunk))
	fmt.Fprintf(&b, "%04X%04X", index, total)
	b.WriteString(strings.ToUpper(hex.EncodeToString(chunk)))
	return b.String()
}

// Parse decodes one frame text.
// Every failure is an *Error matching ErrMalformed; Parse never panics on
// arbitrary input.
func Parse(text string) (*types.Frame, error) {
	if len(text) < MinCapacity {
		return nil, &Error{
			Kind: ErrorShort,
			Msg:  fmt.Sprintf("length %d below minimum %d", len(text), MinCapacity),
		}
	}

	index, err := parseField(text[:fieldLen])
	if err != nil {
		return nil, &Error{Kind: ErrorHeader, Msg: "invalid index field", Err: err}
	}
	total, err := parseField(text[fieldLen:HeaderLen])
	if err != nil {
		return nil, &Error{Kind: ErrorHeader, Msg: "invalid count field", Err: err}
	}
	if total == 0 {
		return nil, &Error{Kind: ErrorRange, Msg: "frame count is zero"}
	}
	if index >= total {
		return nil, &Error{
			Kind: ErrorRange,
			Msg:  fmt.Sprintf("index %d out of range for count %d", index, total),
		}
	}

	chunk, err := hex.DecodeString(text[HeaderLen:])
	if err != nil {
		return nil, &Error{Kind: ErrorChunk, Msg: "invalid chunk encoding", Err: err}
	}

	f := &types.Frame{
		Index: index,
		Total: total,
		Chunk: chunk,
	}

	if f.IsFirst() {
		name, _, err := payload.ReadName(chunk)
		if err != nil {
			return nil, &Error{Kind: ErrorName, Msg: "frame 0 lacks a complete name header", Err: err}
		}
		f.Name = name
	}

	return f, nil
}

// parseField parses one four-digit hex header field.
func parseField(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return 0, fmt.Errorf("non-hex character %q", s[i])
		}
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Join concatenates chunks in index order 0..total-1.
// Every index must be present.
func Join(chunks map[int][]byte, total int) ([]byte, error) {
	if len(chunks) != total {
		return nil, fmt.Errorf("frame: have %d chunks, want %d", len(chunks), total)
	}

	indexes := make([]int, 0, len(chunks))
	size := 0
	for i, c := range chunks {
		indexes = append(indexes, i)
		size += len(c)
	}
	sort.Ints(indexes)

	out := make([]byte, 0, size)
	for want, got := range indexes {
		if want != got {
			return nil, fmt.Errorf("frame: missing chunk %d", want)
		}
		out = append(out, chunks[got]...)
	}
	return out, nil
}
