package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrWorkerClosed is returned by Worker.Submit after Close.
var ErrWorkerClosed = errors.New("session: worker closed")

// Worker serializes capture strings from any number of producers onto a
// single Receiver. Non-candidate strings are dropped without an outcome.
//
// A capture accepted by Submit is applied by Run even when Submit races
// with Close; only cancellation of Run's context discards it.
type Worker struct {
	r   *Receiver
	in  chan string
	out chan Outcome

	// stop releases Submit calls blocked on a full queue once Close starts.
	stop chan struct{}
	once sync.Once

	// mu is held shared by Submit for the duration of its send; Close
	// takes it exclusively before closing in.
	mu     sync.RWMutex
	closed bool
}

// NewWorker creates a worker with room for backlog pending captures.
func NewWorker(r *Receiver, backlog int) *Worker {
	if backlog < 0 {
		backlog = 0
	}
	return &Worker{
		r:    r,
		in:   make(chan string, backlog),
		out:  make(chan Outcome, backlog),
		stop: make(chan struct{}),
	}
}

// Submit queues one capture string. Blocks while the backlog is full.
func (w *Worker) Submit(ctx context.Context, text string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWorkerClosed
	}

	select {
	case w.in <- text:
		return nil
	case <-w.stop:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcomes returns the outcome stream. It is closed when Run returns.
func (w *Worker) Outcomes() <-chan Outcome {
	return w.out
}

// Close stops accepting captures. It returns once no Submit is in
// progress; Run then drains what is queued and returns.
func (w *Worker) Close() {
	w.once.Do(func() {
		close(w.stop)

		w.mu.Lock()
		w.closed = true
		close(w.in)
		w.mu.Unlock()
	})
}

// Run applies queued captures until Close or ctx cancellation.
// Returns ctx.Err() on cancellation and nil after Close.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-w.in:
			if !ok {
				return nil
			}
			if err := w.apply(ctx, text); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) apply(ctx context.Context, text string) error {
	if !IsCandidate(text) {
		return nil
	}
	o := w.r.Submit(strings.TrimSpace(text))
	select {
	case w.out <- o:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
