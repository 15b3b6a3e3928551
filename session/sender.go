// Package session drives one side of an optical transfer.
//
// A Sender owns the frame sequence of the payload being shown and the index
// of the frame on display. A Receiver owns an assembly.Buffer and turns
// capture strings into Outcomes.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/qrtx/frame"
	"github.com/pithecene-io/qrtx/payload"
)

// ErrNoFrames is returned by Sender navigation before a payload is loaded.
var ErrNoFrames = errors.New("session: no frames loaded")

// SendOptions configures frame building.
type SendOptions struct {
	// ChunkSize is the number of encoded bytes per frame.
	// Zero selects the chunk size for frame.DefaultCapacity.
	ChunkSize int
	// Compress stores the body zlib-compressed on the wire.
	Compress bool
}

func (o SendOptions) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return frame.ChunkSizeForCapacity(frame.DefaultCapacity)
}

// Sequence is a built frame sequence for one payload.
type Sequence struct {
	// Name is the display name of the payload.
	Name string
	// Frames holds the frame texts in index order.
	Frames []string
	// EncodedSize is the size of the encoded container.
	EncodedSize int
}

// BuildFrames encodes c into a frame sequence. c is not modified.
// It may run on any goroutine; the result is handed to Sender.Set.
func BuildFrames(c *payload.Container, opts SendOptions) (*Sequence, error) {
	work := *c
	if opts.Compress {
		if err := work.Compress(); err != nil {
			return nil, fmt.Errorf("compress %q: %w", c.Name, err)
		}
	}

	frames, err := frame.Split(&work, opts.chunkSize())
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", c.Name, err)
	}

	encoded, err := work.Marshal()
	if err != nil {
		return nil, err
	}

	return &Sequence{Name: c.Name, Frames: frames, EncodedSize: len(encoded)}, nil
}

// Sender holds the frame sequence on display and the current index.
// All methods are safe for concurrent use.
type Sender struct {
	mu    sync.RWMutex
	seq   *Sequence
	index int
}

// NewSender creates a Sender with nothing loaded.
func NewSender() *Sender {
	return &Sender{}
}

// Load builds frames for c and replaces the current sequence.
// The previous sequence stays on display until the build succeeds.
func (s *Sender) Load(c *payload.Container, opts SendOptions) error {
	seq, err := BuildFrames(c, opts)
	if err != nil {
		return err
	}
	s.Set(seq)
	return nil
}

// Set replaces the current sequence and rewinds to frame 0.
func (s *Sender) Set(seq *Sequence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = seq
	s.index = 0
}

// Reset unloads the sequence.
func (s *Sender) Reset() {
	s.Set(nil)
}

// Len returns the number of frames loaded.
func (s *Sender) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seq == nil {
		return 0
	}
	return len(s.seq.Frames)
}

// Name returns the loaded payload name, or "" when nothing is loaded.
func (s *Sender) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seq == nil {
		return ""
	}
	return s.seq.Name
}

// Frames returns a copy of the loaded frame texts.
func (s *Sender) Frames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seq == nil {
		return nil
	}
	return append([]string(nil), s.seq.Frames...)
}

// Current returns the frame on display and its index.
func (s *Sender) Current() (string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seq == nil || len(s.seq.Frames) == 0 {
		return "", 0, ErrNoFrames
	}
	return s.seq.Frames[s.index], s.index, nil
}

// Next advances one frame, wrapping from the last frame to frame 0.
func (s *Sender) Next() (string, int, error) {
	return s.step(1)
}

// Prev steps back one frame, wrapping from frame 0 to the last frame.
func (s *Sender) Prev() (string, int, error) {
	return s.step(-1)
}

// Seek moves to index i modulo the frame count.
func (s *Sender) Seek(i int) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq == nil || len(s.seq.Frames) == 0 {
		return "", 0, ErrNoFrames
	}
	n := len(s.seq.Frames)
	s.index = ((i % n) + n) % n
	return s.seq.Frames[s.index], s.index, nil
}

func (s *Sender) step(delta int) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq == nil || len(s.seq.Frames) == 0 {
		return "", 0, ErrNoFrames
	}
	n := len(s.seq.Frames)
	s.index = ((s.index+delta)%n + n) % n
	return s.seq.Frames[s.index], s.index, nil
}
