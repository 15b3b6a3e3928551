// Package metrics provides per-process transfer counters.
//
// The Collector accumulates counters for one send or receive session. It is
// a leaf package with no internal dependencies; callers translate outcomes
// into increments.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Frames (receive side)
	FramesSubmitted int64
	FramesAccepted  int64
	FramesDuplicate int64
	FramesMalformed int64
	FramesStale     int64

	// Frames (send side)
	FramesDisplayed int64

	// Transfer lifecycle
	TransfersStarted   int64
	TransfersRestarted int64
	TransfersCompleted int64
	TransfersCorrupt   int64

	// Delivery
	DeliverySuccess int64
	DeliveryFailure int64
	BytesDelivered  int64

	// Journal / notifications
	JournalWriteSuccess int64
	JournalWriteFailure int64
	NotifyFailure       int64

	// Dimensions (informational, set at construction)
	Direction      string
	StorageBackend string
}

// Collector accumulates counters during a session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	framesSubmitted int64
	framesAccepted  int64
	framesDuplicate int64
	framesMalformed int64
	framesStale     int64
	framesDisplayed int64

	transfersStarted   int64
	transfersRestarted int64
	transfersCompleted int64
	transfersCorrupt   int64

	deliverySuccess int64
	deliveryFailure int64
	bytesDelivered  int64

	journalWriteSuccess int64
	journalWriteFailure int64
	notifyFailure       int64

	direction      string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
// direction is "send" or "receive"; storageBackend names the file sink
// ("fs", "lode-fs", "s3") and may be empty for send sessions.
func NewCollector(direction, storageBackend string) *Collector {
	return &Collector{
		direction:      direction,
		storageBackend: storageBackend,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Frames ---

// IncFrameSubmitted records one capture string handed to the receiver.
func (c *Collector) IncFrameSubmitted() {
	if c == nil {
		return
	}
	c.add(&c.framesSubmitted, 1)
}

// IncFrameAccepted records a frame that stored a new chunk.
func (c *Collector) IncFrameAccepted() {
	if c == nil {
		return
	}
	c.add(&c.framesAccepted, 1)
}

// IncFrameDuplicate records a frame whose chunk was already held.
func (c *Collector) IncFrameDuplicate() {
	if c == nil {
		return
	}
	c.add(&c.framesDuplicate, 1)
}

// IncFrameMalformed records a capture string that failed to parse.
func (c *Collector) IncFrameMalformed() {
	if c == nil {
		return
	}
	c.add(&c.framesMalformed, 1)
}

// IncFrameStale records a frame outside the active transfer.
func (c *Collector) IncFrameStale() {
	if c == nil {
		return
	}
	c.add(&c.framesStale, 1)
}

// IncFrameDisplayed records one frame shown by a sender.
func (c *Collector) IncFrameDisplayed() {
	if c == nil {
		return
	}
	c.add(&c.framesDisplayed, 1)
}

// --- Transfers ---

// IncTransferStarted records a frame 0 opening a transfer.
func (c *Collector) IncTransferStarted() {
	if c == nil {
		return
	}
	c.add(&c.transfersStarted, 1)
}

// IncTransferRestarted records a transfer discarded by a new frame 0.
func (c *Collector) IncTransferRestarted() {
	if c == nil {
		return
	}
	c.add(&c.transfersRestarted, 1)
}

// IncTransferCompleted records a transfer that decoded successfully.
func (c *Collector) IncTransferCompleted() {
	if c == nil {
		return
	}
	c.add(&c.transfersCompleted, 1)
}

// IncTransferCorrupt records a complete transfer that failed to decode.
func (c *Collector) IncTransferCorrupt() {
	if c == nil {
		return
	}
	c.add(&c.transfersCorrupt, 1)
}

// --- Delivery ---
// Delivery counters are per-container. One file or one clipboard text
// counts as one delivery regardless of size.

// IncDeliverySuccess records a delivered container of n bytes.
func (c *Collector) IncDeliverySuccess(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.deliverySuccess++
	c.bytesDelivered += int64(n)
	c.mu.Unlock()
}

// IncDeliveryFailure records a sink failure.
func (c *Collector) IncDeliveryFailure() {
	if c == nil {
		return
	}
	c.add(&c.deliveryFailure, 1)
}

// --- Journal / notifications ---

// IncJournalWriteSuccess records a journal append.
func (c *Collector) IncJournalWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteSuccess, 1)
}

// IncJournalWriteFailure records a failed journal append.
func (c *Collector) IncJournalWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteFailure, 1)
}

// IncNotifyFailure records a failed adapter publish.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.add(&c.notifyFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		FramesSubmitted: c.framesSubmitted,
		FramesAccepted:  c.framesAccepted,
		FramesDuplicate: c.framesDuplicate,
		FramesMalformed: c.framesMalformed,
		FramesStale:     c.framesStale,
		FramesDisplayed: c.framesDisplayed,

		TransfersStarted:   c.transfersStarted,
		TransfersRestarted: c.transfersRestarted,
		TransfersCompleted: c.transfersCompleted,
		TransfersCorrupt:   c.transfersCorrupt,

		DeliverySuccess: c.deliverySuccess,
		DeliveryFailure: c.deliveryFailure,
		BytesDelivered:  c.bytesDelivered,

		JournalWriteSuccess: c.journalWriteSuccess,
		JournalWriteFailure: c.journalWriteFailure,
		NotifyFailure:       c.notifyFailure,

		Direction:      c.direction,
		StorageBackend: c.storageBackend,
	}
}
