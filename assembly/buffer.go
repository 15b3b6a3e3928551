// Package assembly reassembles optical frames into transfer payloads.
//
// Frames arrive in any order, may repeat, and may belong to an earlier
// transfer that the operator abandoned. A Buffer holds the chunks of at most
// one transfer; a frame 0 asserting a different name discards them.
package assembly

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/qrtx/frame"
	"github.com/pithecene-io/qrtx/payload"
	"github.com/pithecene-io/qrtx/types"
)

// ErrStaleFrame is returned for frames that belong to no active transfer.
// Stale frames are dropped; the transfer in progress is unaffected.
var ErrStaleFrame = errors.New("stale frame")

// State is the buffer's position in the transfer lifecycle.
type State int

const (
	// StateIdle means no transfer is active.
	StateIdle State = iota
	// StateCollecting means a transfer is active and incomplete.
	StateCollecting
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status describes what one Ingest call did.
type Status int

const (
	// StatusAccepted means a new chunk was stored.
	StatusAccepted Status = iota
	// StatusDuplicate means the chunk was already held.
	StatusDuplicate
	// StatusComplete means the transfer finished with this frame.
	StatusComplete
)

// Result reports the buffer after one Ingest call.
type Result struct {
	Status Status
	// Restarted is set when this frame discarded an earlier transfer.
	Restarted bool
	// Discarded is the number of chunks dropped by a restart.
	Discarded int
	// Received and Expected describe progress of the active transfer.
	// For StatusComplete they describe the transfer that just finished.
	Received int
	Expected int
	// Waiting is the lowest index not yet received, or -1 when complete.
	Waiting int
	// Name is the wire name of the transfer.
	Name string
	// Container is set when Status is StatusComplete. Its body may still
	// be compressed.
	Container *payload.Container
	// EncodedSize is the joined encoded size when Status is StatusComplete.
	EncodedSize int
}

// Buffer is the incremental frame assembler.
// Ingest, Reset and Restore are serialized by an internal mutex.
type Buffer struct {
	mu        sync.Mutex
	expected  int
	name      string
	collected map[int][]byte
}

// NewBuffer creates an idle buffer.
func NewBuffer() *Buffer {
	return &Buffer{collected: make(map[int][]byte)}
}

// Ingest applies one frame to the buffer.
//
// A frame 0 opens a new transfer when the buffer is idle, or when its name
// or frame count differs from the active transfer; the previous chunks are
// discarded. Any other frame whose index is outside the active transfer,
// or whose count disagrees with it, fails with ErrStaleFrame. Duplicates are
// reported as StatusDuplicate. When the last chunk arrives the chunks are
// joined and decoded, and the buffer returns to idle; a decode failure
// wraps payload.ErrCorruptPayload and also returns the buffer to idle.
func (b *Buffer) Ingest(f *types.Frame) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res Result

	if f.Total <= 0 || f.Index < 0 {
		return res, fmt.Errorf("%w: index %d of %d", ErrStaleFrame, f.Index, f.Total)
	}

	if f.IsFirst() && (b.expected == 0 || f.Name != b.name || f.Total != b.expected) {
		res.Restarted = b.expected != 0
		res.Discarded = len(b.collected)
		b.expected = f.Total
		b.name = f.Name
		b.collected = make(map[int][]byte, f.Total)
	}

	if f.Index >= b.expected || f.Total != b.expected {
		return res, fmt.Errorf("%w: index %d of %d, active transfer expects %d",
			ErrStaleFrame, f.Index, f.Total, b.expected)
	}

	res.Name = b.name
	res.Expected = b.expected

	if _, seen := b.collected[f.Index]; seen {
		res.Status = StatusDuplicate
		res.Received = len(b.collected)
		res.Waiting = b.waitingLocked()
		return res, nil
	}

	chunk := make([]byte, len(f.Chunk))
	copy(chunk, f.Chunk)
	b.collected[f.Index] = chunk
	res.Received = len(b.collected)

	if len(b.collected) < b.expected {
		res.Status = StatusAccepted
		res.Waiting = b.waitingLocked()
		return res, nil
	}

	// All chunks present: decode and return to idle regardless of outcome.
	joined, err := frame.Join(b.collected, b.expected)
	b.resetLocked()
	if err != nil {
		return res, fmt.Errorf("%w: %v", payload.ErrCorruptPayload, err)
	}

	c, err := payload.Unmarshal(joined)
	if err != nil {
		return res, err
	}

	res.Status = StatusComplete
	res.Waiting = -1
	res.Container = c
	res.EncodedSize = len(joined)
	return res, nil
}

// Reset abandons the active transfer. Safe to call at any time.
// Returns the number of chunks discarded.
func (b *Buffer) Reset() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.collected)
	b.resetLocked()
	return n
}

// State returns the current lifecycle state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.expected == 0 {
		return StateIdle
	}
	return StateCollecting
}

// Progress returns received and expected counts and the active wire name.
func (b *Buffer) Progress() (received, expected int, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.collected), b.expected, b.name
}

// Missing returns the indexes not yet received, in ascending order.
func (b *Buffer) Missing() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var missing []int
	for i := 0; i < b.expected; i++ {
		if _, ok := b.collected[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

func (b *Buffer) resetLocked() {
	b.expected = 0
	b.name = ""
	b.collected = make(map[int][]byte)
}

// waitingLocked returns the lowest missing index, or -1.
func (b *Buffer) waitingLocked() int {
	for i := 0; i < b.expected; i++ {
		if _, ok := b.collected[i]; !ok {
			return i
		}
	}
	return -1
}
