//nolint:revive // types is a common Go package naming convention
package types

// PayloadKind distinguishes clipboard text from named files.
type PayloadKind string

const (
	// PayloadFile is a named file persisted by a file sink.
	PayloadFile PayloadKind = "file"
	// PayloadClipboard is UTF-8 text delivered to a text sink.
	PayloadClipboard PayloadKind = "clipboard"
)

// TransferStatus is the terminal status of one received transfer.
type TransferStatus string

const (
	// TransferDelivered means the payload reached its sink.
	TransferDelivered TransferStatus = "delivered"
	// TransferCorrupt means the reassembled payload failed to decode.
	TransferCorrupt TransferStatus = "corrupt_payload"
	// TransferSinkFailed means decoding succeeded but the sink write failed.
	TransferSinkFailed TransferStatus = "sink_failed"
)

// IsFailure reports whether the status ends a transfer unsuccessfully.
func (s TransferStatus) IsFailure() bool {
	return s != TransferDelivered
}
