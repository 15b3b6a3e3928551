package assembly

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Checkpoint is a serializable copy of a buffer's active transfer.
type Checkpoint struct {
	Expected int               `msgpack:"expected"`
	Name     string            `msgpack:"name"`
	Chunks   []CheckpointChunk `msgpack:"chunks"`
}

// CheckpointChunk is one stored chunk.
type CheckpointChunk struct {
	Index int    `msgpack:"index"`
	Data  []byte `msgpack:"data"`
}

// ErrInvalidCheckpoint is returned by Restore for inconsistent checkpoints.
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

// Checkpoint captures the active transfer. Chunks are ordered by index.
func (b *Buffer) Checkpoint() Checkpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := Checkpoint{
		Expected: b.expected,
		Name:     b.name,
		Chunks:   make([]CheckpointChunk, 0, len(b.collected)),
	}
	for i, data := range b.collected {
		cp.Chunks = append(cp.Chunks, CheckpointChunk{Index: i, Data: append([]byte(nil), data...)})
	}
	sort.Slice(cp.Chunks, func(i, j int) bool { return cp.Chunks[i].Index < cp.Chunks[j].Index })
	return cp
}

// Restore replaces the buffer contents with cp.
// A checkpoint holding every chunk is rejected: it would have completed.
func (b *Buffer) Restore(cp Checkpoint) error {
	if err := cp.validate(); err != nil {
		return err
	}

	collected := make(map[int][]byte, len(cp.Chunks))
	for _, c := range cp.Chunks {
		collected[c.Index] = append([]byte(nil), c.Data...)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.expected = cp.Expected
	b.name = cp.Name
	b.collected = collected
	return nil
}

func (cp Checkpoint) validate() error {
	if cp.Expected < 0 {
		return fmt.Errorf("%w: negative frame count", ErrInvalidCheckpoint)
	}
	if cp.Expected == 0 && len(cp.Chunks) > 0 {
		return fmt.Errorf("%w: chunks without active transfer", ErrInvalidCheckpoint)
	}
	if cp.Expected > 0 && len(cp.Chunks) >= cp.Expected {
		return fmt.Errorf("%w: %d chunks for %d frames", ErrInvalidCheckpoint, len(cp.Chunks), cp.Expected)
	}
	seen := make(map[int]struct{}, len(cp.Chunks))
	for _, c := range cp.Chunks {
		if c.Index < 0 || c.Index >= cp.Expected {
			return fmt.Errorf("%w: chunk index %d out of range", ErrInvalidCheckpoint, c.Index)
		}
		if _, dup := seen[c.Index]; dup {
			return fmt.Errorf("%w: duplicate chunk index %d", ErrInvalidCheckpoint, c.Index)
		}
		seen[c.Index] = struct{}{}
	}
	return nil
}

// MarshalCheckpoint encodes cp as msgpack.
func MarshalCheckpoint(cp Checkpoint) ([]byte, error) {
	data, err := msgpack.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}

// UnmarshalCheckpoint decodes a msgpack checkpoint.
func UnmarshalCheckpoint(data []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := msgpack.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	return cp, nil
}
