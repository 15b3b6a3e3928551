// Package adapter defines the notification boundary for finished transfers.
//
// Adapters publish transfer completion notifications to downstream systems
// (a Redis channel, an HTTP endpoint). The receive command owns adapter
// lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/pithecene-io/qrtx/types"
)

// EventTypeTransferCompleted is the event_type of every published event.
const EventTypeTransferCompleted = "transfer_completed"

// TransferCompletedEvent is the payload published when a transfer ends,
// successfully or not.
type TransferCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "transfer_completed"
	TransferID      string `json:"transfer_id"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`   // file or clipboard
	Status          string `json:"status"` // delivered, corrupt_payload, sink_failed
	Error           string `json:"error,omitempty"`
	Location        string `json:"location,omitempty"`
	Overwritten     bool   `json:"overwritten"`
	Frames          int    `json:"frames"`
	Size            int64  `json:"size"`
	EncodedSize     int64  `json:"encoded_size"`
	Timestamp       string `json:"timestamp"` // ISO 8601
	DurationMs      int64  `json:"duration_ms"`
}

// NewTransferCompletedEvent fills the fixed fields of an event.
func NewTransferCompletedEvent(transferID string, status types.TransferStatus, at time.Time) *TransferCompletedEvent {
	return &TransferCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeTransferCompleted,
		TransferID:      transferID,
		Status:          string(status),
		Timestamp:       at.UTC().Format(time.RFC3339),
	}
}

// Adapter publishes transfer completion events to a downstream system.
type Adapter interface {
	// Publish sends a transfer completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TransferCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Multi fans one event out to several adapters.
type Multi []Adapter

// Publish sends event to every adapter and joins their errors.
func (m Multi) Publish(ctx context.Context, event *TransferCompletedEvent) error {
	var errs []error
	for _, a := range m {
		if err := a.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every adapter and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Verify Multi implements the adapter interface.
var _ Adapter = Multi(nil)
