//nolint:revive // types is a common Go package naming convention
package types

// Frame is one parsed optical frame.
// Every frame carries Total so it is self-describing; frame 0 also
// carries the wire name of its transfer.
type Frame struct {
	// Index is the zero-based position in the transfer, 0..Total-1.
	Index int
	// Total is the number of frames in the transfer.
	Total int
	// Name is the wire name asserted by frame 0. Empty on other frames.
	Name string
	// Chunk is the slice of the encoded container owned by this frame.
	Chunk []byte
}

// IsFirst reports whether f opens a transfer.
func (f *Frame) IsFirst() bool {
	return f.Index == 0
}
