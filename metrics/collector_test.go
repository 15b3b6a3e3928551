package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("receive", "fs")

	for range 5 {
		c.IncFrameSubmitted()
	}
	c.IncFrameAccepted()
	c.IncFrameAccepted()
	c.IncFrameDuplicate()
	c.IncFrameMalformed()
	c.IncFrameStale()
	c.IncFrameDisplayed()
	c.IncTransferStarted()
	c.IncTransferStarted()
	c.IncTransferRestarted()
	c.IncTransferCompleted()
	c.IncTransferCorrupt()
	c.IncDeliverySuccess(11)
	c.IncDeliverySuccess(4)
	c.IncDeliveryFailure()
	c.IncJournalWriteSuccess()
	c.IncJournalWriteFailure()
	c.IncNotifyFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"FramesSubmitted", s.FramesSubmitted, 5},
		{"FramesAccepted", s.FramesAccepted, 2},
		{"FramesDuplicate", s.FramesDuplicate, 1},
		{"FramesMalformed", s.FramesMalformed, 1},
		{"FramesStale", s.FramesStale, 1},
		{"FramesDisplayed", s.FramesDisplayed, 1},
		{"TransfersStarted", s.TransfersStarted, 2},
		{"TransfersRestarted", s.TransfersRestarted, 1},
		{"TransfersCompleted", s.TransfersCompleted, 1},
		{"TransfersCorrupt", s.TransfersCorrupt, 1},
		{"DeliverySuccess", s.DeliverySuccess, 2},
		{"DeliveryFailure", s.DeliveryFailure, 1},
		{"BytesDelivered", s.BytesDelivered, 15},
		{"JournalWriteSuccess", s.JournalWriteSuccess, 1},
		{"JournalWriteFailure", s.JournalWriteFailure, 1},
		{"NotifyFailure", s.NotifyFailure, 1},
	}
	for _, tt := range checks {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("receive", "s3").Snapshot()

	if s.Direction != "receive" {
		t.Errorf("Direction = %q, want %q", s.Direction, "receive")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var c *Collector

	// Must not panic.
	c.IncFrameSubmitted()
	c.IncTransferCompleted()
	c.IncDeliverySuccess(10)
	c.IncNotifyFailure()

	s := c.Snapshot()
	if s.FramesSubmitted != 0 || s.Direction != "" {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("receive", "fs")
	c.IncFrameAccepted()

	s := c.Snapshot()
	c.IncFrameAccepted()

	if s.FramesAccepted != 1 {
		t.Errorf("snapshot mutated: FramesAccepted = %d, want 1", s.FramesAccepted)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("receive", "fs")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.IncFrameSubmitted()
				c.IncDeliverySuccess(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.FramesSubmitted != 5000 {
		t.Errorf("FramesSubmitted = %d, want 5000", s.FramesSubmitted)
	}
	if s.BytesDelivered != 5000 {
		t.Errorf("BytesDelivered = %d, want 5000", s.BytesDelivered)
	}
}
