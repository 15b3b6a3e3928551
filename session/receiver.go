package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/qrtx/assembly"
	"github.com/pithecene-io/qrtx/frame"
	"github.com/pithecene-io/qrtx/log"
	"github.com/pithecene-io/qrtx/metrics"
	"github.com/pithecene-io/qrtx/payload"
	"github.com/pithecene-io/qrtx/types"
)

// MinCandidateLen is the length a capture string must exceed to be
// considered a frame at all. Shorter strings are ignored upstream.
const MinCandidateLen = 7

// DefaultCheckpointInterval is the minimum spacing of checkpoint writes
// while a transfer is collecting.
const DefaultCheckpointInterval = 2 * time.Second

// IsCandidate reports whether a raw capture string could be a frame.
func IsCandidate(text string) bool {
	return len(strings.TrimSpace(text)) > MinCandidateLen
}

// Outcome is the result of submitting one capture string.
type Outcome struct {
	Kind types.OutcomeKind
	// Reason is set when Kind is OutcomeRejected.
	Reason types.RejectReason
	// Err carries the underlying error of a rejection.
	Err error

	// TransferID identifies the transfer the frame was applied to.
	// Empty for frames that matched no transfer.
	TransferID string
	// Name is the decoded name of the transfer.
	Name string
	// Received and Expected report progress of the transfer.
	Received int
	Expected int
	// Waiting is the lowest missing index, or -1 once finished.
	Waiting int
	// Restarted is set when this frame discarded an earlier transfer.
	Restarted bool
	// Duplicate is set when the frame's chunk was already held.
	Duplicate bool

	// Container is the decompressed payload when Kind is OutcomeFinished.
	Container *payload.Container
	// EncodedSize is the size of the reassembled encoding when finished.
	EncodedSize int
}

// Fatal reports whether the outcome ended its transfer unsuccessfully.
func (o Outcome) Fatal() bool {
	return o.Kind == types.OutcomeRejected && o.Reason.IsFatal()
}

// String renders the progress line shown to the operator.
func (o Outcome) String() string {
	switch o.Kind {
	case types.OutcomeFinished:
		return fmt.Sprintf("%s received %d of %d", o.Name, o.Received, o.Expected)
	case types.OutcomeProgress:
		return fmt.Sprintf("%s received %d of %d waiting %d", o.Name, o.Received, o.Expected, o.Waiting)
	default:
		return fmt.Sprintf("rejected: %s", o.Reason)
	}
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver)

// WithLogger sets the receiver's logger.
func WithLogger(l *log.Logger) ReceiverOption {
	return func(r *Receiver) { r.logger = l }
}

// WithMetrics sets the receiver's collector.
func WithMetrics(c *metrics.Collector) ReceiverOption {
	return func(r *Receiver) { r.metrics = c }
}

// WithCheckpoints persists the buffer to s. A transfer's start and end
// are written at once; frames in between at most once per interval.
func WithCheckpoints(s *CheckpointStore) ReceiverOption {
	return func(r *Receiver) { r.checkpoints = s }
}

// WithCheckpointInterval overrides DefaultCheckpointInterval. Zero writes
// after every applied frame.
func WithCheckpointInterval(d time.Duration) ReceiverOption {
	return func(r *Receiver) { r.checkpointEvery = d }
}

// WithClock overrides the time source used to space checkpoint writes.
func WithClock(now func() time.Time) ReceiverOption {
	return func(r *Receiver) { r.now = now }
}

// WithIDFunc overrides transfer ID generation.
func WithIDFunc(fn func() string) ReceiverOption {
	return func(r *Receiver) { r.newID = fn }
}

// Receiver turns capture strings into outcomes.
// Submit may be called from any goroutine; frames are applied one at a time.
type Receiver struct {
	mu          sync.Mutex
	buf         *assembly.Buffer
	transferID  string
	logger      *log.Logger
	metrics     *metrics.Collector
	checkpoints *CheckpointStore
	newID       func() string

	checkpointEvery time.Duration
	lastCheckpoint  time.Time
	// dirty is set when the buffer changed since the last checkpoint write.
	dirty bool
	now   func() time.Time
}

// NewReceiver creates an idle receiver.
func NewReceiver(opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		buf:    assembly.NewBuffer(),
		logger: log.Nop(),
		newID:  func() string { return uuid.NewString() },
		now:    time.Now,

		checkpointEvery: DefaultCheckpointInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resume restores the buffer from the checkpoint store, if one is set and
// holds an active transfer. Returns the restored progress.
func (r *Receiver) Resume() (received, expected int, err error) {
	if r.checkpoints == nil {
		return 0, 0, nil
	}
	cp, ok, err := r.checkpoints.Load()
	if err != nil || !ok {
		return 0, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.buf.Restore(cp); err != nil {
		return 0, 0, err
	}
	if cp.Expected > 0 {
		r.transferID = r.newID()
		r.logger.WithTransfer(r.transferID).Info("transfer resumed", map[string]any{
			"name":     displayName(cp.Name),
			"received": len(cp.Chunks),
			"expected": cp.Expected,
		})
	}
	return len(cp.Chunks), cp.Expected, nil
}

// Submit applies one capture string.
func (r *Receiver) Submit(text string) Outcome {
	r.metrics.IncFrameSubmitted()

	f, err := frame.Parse(text)
	if err != nil {
		r.metrics.IncFrameMalformed()
		r.logger.Debug("frame rejected", map[string]any{
			"reason": string(types.ReasonMalformedFrame),
			"error":  err.Error(),
		})
		return Outcome{Kind: types.OutcomeRejected, Reason: types.ReasonMalformedFrame, Err: err}
	}

	res, id, err := r.ingest(f)
	logger := r.logger
	if id != "" {
		logger = logger.WithTransfer(id)
	}

	switch {
	case errors.Is(err, assembly.ErrStaleFrame):
		r.metrics.IncFrameStale()
		logger.Debug("frame rejected", map[string]any{
			"reason": string(types.ReasonStaleFrame),
			"index":  f.Index,
			"total":  f.Total,
		})
		return Outcome{Kind: types.OutcomeRejected, Reason: types.ReasonStaleFrame, Err: err}
	case err != nil:
		return r.corrupt(logger, id, res, err)
	}

	out := Outcome{
		Kind:       types.OutcomeProgress,
		TransferID: id,
		Name:       displayName(res.Name),
		Received:   res.Received,
		Expected:   res.Expected,
		Waiting:    res.Waiting,
		Restarted:  res.Restarted,
		Duplicate:  res.Status == assembly.StatusDuplicate,
	}
	if out.Duplicate {
		r.metrics.IncFrameDuplicate()
		return out
	}
	r.metrics.IncFrameAccepted()

	if res.Status != assembly.StatusComplete {
		return out
	}

	c := res.Container
	if err := c.Decompress(); err != nil {
		return r.corrupt(logger, id, res, err)
	}

	r.metrics.IncTransferCompleted()
	logger.Info("transfer finished", map[string]any{
		"name":         c.Name,
		"kind":         c.Kind(),
		"frames":       res.Expected,
		"encoded_size": res.EncodedSize,
		"size":         c.Size(),
	})

	out.Kind = types.OutcomeFinished
	out.Name = c.Name
	out.Container = c
	out.EncodedSize = res.EncodedSize
	return out
}

// ingest applies f under the receiver lock and maintains the transfer ID
// and checkpoint.
func (r *Receiver) ingest(f *types.Frame) (assembly.Result, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasIdle := r.buf.State() == assembly.StateIdle
	res, err := r.buf.Ingest(f)
	if errors.Is(err, assembly.ErrStaleFrame) {
		return res, r.transferID, err
	}

	started := f.IsFirst() && (wasIdle || res.Restarted)
	if started {
		if res.Restarted {
			r.metrics.IncTransferRestarted()
			r.logger.WithTransfer(r.transferID).Warn("transfer abandoned", map[string]any{
				"discarded": res.Discarded,
			})
		}
		r.transferID = r.newID()
		r.metrics.IncTransferStarted()
		r.logger.WithTransfer(r.transferID).Info("transfer started", map[string]any{
			"name":   displayName(res.Name),
			"frames": res.Expected,
		})
	}
	id := r.transferID

	if err != nil || res.Status == assembly.StatusComplete {
		r.transferID = ""
	}
	if res.Status != assembly.StatusDuplicate || err != nil {
		r.saveCheckpointLocked(started || r.buf.State() == assembly.StateIdle)
	}
	return res, id, err
}

func (r *Receiver) corrupt(logger *log.Logger, id string, res assembly.Result, err error) Outcome {
	if !errors.Is(err, payload.ErrCorruptPayload) {
		err = fmt.Errorf("%w: %v", payload.ErrCorruptPayload, err)
	}
	r.metrics.IncTransferCorrupt()
	logger.Error("transfer corrupt", map[string]any{
		"frames": res.Expected,
		"error":  err.Error(),
	})
	return Outcome{
		Kind:       types.OutcomeRejected,
		Reason:     types.ReasonCorruptPayload,
		Err:        err,
		TransferID: id,
		Name:       displayName(res.Name),
		Received:   res.Received,
		Expected:   res.Expected,
		Waiting:    -1,
	}
}

// saveCheckpointLocked marks the buffer changed and writes it when force
// is set or the interval has passed since the last write.
func (r *Receiver) saveCheckpointLocked(force bool) {
	if r.checkpoints == nil {
		return
	}
	r.dirty = true
	now := r.now()
	if !force && now.Sub(r.lastCheckpoint) < r.checkpointEvery {
		return
	}
	r.flushCheckpointLocked(now)
}

func (r *Receiver) flushCheckpointLocked(now time.Time) {
	if err := r.checkpoints.Save(r.buf.Checkpoint()); err != nil {
		r.logger.Warn("checkpoint save failed", map[string]any{"error": err.Error()})
		return
	}
	r.lastCheckpoint = now
	r.dirty = false
}

// Flush writes any buffer changes not yet checkpointed.
func (r *Receiver) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.checkpoints == nil || !r.dirty {
		return
	}
	r.flushCheckpointLocked(r.now())
}

// Abandon discards the active transfer. Returns the chunks discarded.
func (r *Receiver) Abandon() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.buf.Reset()
	if r.transferID != "" {
		r.logger.WithTransfer(r.transferID).Info("transfer abandoned", map[string]any{"discarded": n})
	}
	r.transferID = ""
	r.saveCheckpointLocked(true)
	return n
}

// Progress returns the active transfer's counts and decoded name.
func (r *Receiver) Progress() (received, expected int, name string) {
	received, expected, wire := r.buf.Progress()
	return received, expected, displayName(wire)
}

// Missing returns the indexes not yet received.
func (r *Receiver) Missing() []int {
	return r.buf.Missing()
}

// displayName maps a wire name for display, keeping it when it does not
// decode.
func displayName(wire string) string {
	name, err := payload.DecodeName(wire)
	if err != nil {
		return wire
	}
	return name
}
