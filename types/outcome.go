//nolint:revive // types is a common Go package naming convention
package types

// OutcomeKind classifies the result of submitting one capture string.
type OutcomeKind string

const (
	// OutcomeRejected means the frame changed nothing.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeProgress means the frame was applied and the transfer is incomplete.
	OutcomeProgress OutcomeKind = "progress"
	// OutcomeFinished means the frame completed a transfer.
	OutcomeFinished OutcomeKind = "finished"
)

// RejectReason explains an OutcomeRejected.
type RejectReason string

const (
	// ReasonNone is the zero reason carried by non-rejected outcomes.
	ReasonNone RejectReason = ""
	// ReasonMalformedFrame means the text did not parse as a frame.
	ReasonMalformedFrame RejectReason = "malformed_frame"
	// ReasonStaleFrame means the frame belongs to no active transfer.
	ReasonStaleFrame RejectReason = "stale_frame"
	// ReasonCorruptPayload means the transfer completed but did not decode.
	// The transfer is lost; the receiver is already idle.
	ReasonCorruptPayload RejectReason = "corrupt_payload"
)

// IsFatal reports whether the reason ended a transfer.
func (r RejectReason) IsFatal() bool {
	return r == ReasonCorruptPayload
}
