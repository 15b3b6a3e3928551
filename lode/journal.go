package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/qrtx/types"
)

// DatasetID is the Lode dataset holding the transfer journal.
const DatasetID = "qrtx"

// RecordKindTransfer discriminates transfer records.
const RecordKindTransfer = "transfer"

// ErrNoTransfers is returned when the journal holds no matching records.
var ErrNoTransfers = errors.New("no transfer records found")

// TransferRecord is the journal entry for one finished or failed transfer.
type TransferRecord struct {
	TransferID  string
	Name        string
	Kind        types.PayloadKind
	Status      types.TransferStatus
	Error       string
	Frames      int
	EncodedSize int64
	Size        int64
	Location    string
	Overwritten bool
	CompletedAt time.Time
}

// DeriveDay computes the partition day from the completion time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// toMap converts the record to its stored form. Partition keys (day,
// status) are included as fields for the Hive layout.
func (r TransferRecord) toMap() map[string]any {
	m := map[string]any{
		"record_kind":      RecordKindTransfer,
		"contract_version": types.ContractVersion,
		"transfer_id":      r.TransferID,
		"name":             r.Name,
		"kind":             string(r.Kind),
		"status":           string(r.Status),
		"frames":           r.Frames,
		"encoded_size":     r.EncodedSize,
		"size":             r.Size,
		"overwritten":      r.Overwritten,
		"completed_at":     r.CompletedAt.UTC().Format(time.RFC3339Nano),
		"day":              DeriveDay(r.CompletedAt),
	}
	if r.Location != "" {
		m["location"] = r.Location
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

// recordFromMap decodes a stored record. Numbers may arrive as float64
// or json.Number depending on the codec.
func recordFromMap(m map[string]any) (TransferRecord, bool) {
	if toString(m["record_kind"]) != RecordKindTransfer {
		return TransferRecord{}, false
	}
	rec := TransferRecord{
		TransferID:  toString(m["transfer_id"]),
		Name:        toString(m["name"]),
		Kind:        types.PayloadKind(toString(m["kind"])),
		Status:      types.TransferStatus(toString(m["status"])),
		Error:       toString(m["error"]),
		Frames:      int(toInt64(m["frames"])),
		EncodedSize: toInt64(m["encoded_size"]),
		Size:        toInt64(m["size"]),
		Location:    toString(m["location"]),
	}
	if b, ok := m["overwritten"].(bool); ok {
		rec.Overwritten = b
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(m["completed_at"])); err == nil {
		rec.CompletedAt = ts
	}
	return rec, true
}

// Journal appends transfer records to a Lode dataset partitioned by
// day and status.
type Journal struct {
	dataset lode.Dataset
}

// NewJournal creates a journal over the given store factory.
// Use lode.NewMemoryFactory() for testing.
func NewJournal(factory lode.StoreFactory) (*Journal, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(DatasetID),
		factory,
		lode.WithHiveLayout("day", "status"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, DatasetID)
	}
	return &Journal{dataset: ds}, nil
}

// NewJournalFS creates a journal with filesystem storage under root.
func NewJournalFS(root string) (*Journal, error) {
	return NewJournal(lode.NewFSFactory(root))
}

// Append writes one record.
func (j *Journal) Append(ctx context.Context, rec TransferRecord) error {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	if _, err := j.dataset.Write(ctx, []any{rec.toMap()}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, DatasetID+"/journal")
	}
	return nil
}

// HistoryFilter narrows List. Empty fields match everything.
type HistoryFilter struct {
	Day    string
	Status types.TransferStatus
	Limit  int
}

// List returns journal records newest first.
// Returns ErrNoTransfers when nothing matches.
func (j *Journal) List(ctx context.Context, filter HistoryFilter) ([]TransferRecord, error) {
	snapshots, err := j.dataset.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, DatasetID+"/snapshots")
	}

	var out []TransferRecord
	// Snapshots are ordered by creation time; iterate latest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		if !snapshotMatchesFilter(snap, "day", filter.Day) {
			continue
		}
		if !snapshotMatchesFilter(snap, "status", string(filter.Status)) {
			continue
		}

		data, err := j.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", DatasetID, snap.ID))
		}

		// Manifest path filtering is a coarse pre-filter; record fields
		// are authoritative.
		for k := len(data) - 1; k >= 0; k-- {
			m, ok := data[k].(map[string]any)
			if !ok {
				continue
			}
			rec, ok := recordFromMap(m)
			if !ok {
				continue
			}
			if filter.Day != "" && DeriveDay(rec.CompletedAt) != filter.Day {
				continue
			}
			if filter.Status != "" && rec.Status != filter.Status {
				continue
			}
			out = append(out, rec)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return out, nil
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoTransfers
	}
	return out, nil
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, avoiding substring false positives.
func matchesPartitionValue(p, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(p, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded JSON number to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case interface{ Int64() (int64, error) }:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
