package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pithecene-io/qrtx/assembly"
	"github.com/pithecene-io/qrtx/iox"
)

// CheckpointStore keeps the receive buffer in a single msgpack file so an
// interrupted transfer can resume after a restart.
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a store backed by path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Path returns the backing file path.
func (s *CheckpointStore) Path() string {
	return s.path
}

// Save writes cp. An idle checkpoint removes the file instead.
func (s *CheckpointStore) Save(cp assembly.Checkpoint) error {
	if cp.Expected == 0 {
		return s.Remove()
	}
	data, err := assembly.MarshalCheckpoint(cp)
	if err != nil {
		return err
	}
	if err := iox.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", s.path, err)
	}
	return nil
}

// Load reads the checkpoint. ok is false when no checkpoint exists.
func (s *CheckpointStore) Load() (cp assembly.Checkpoint, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return assembly.Checkpoint{}, false, nil
	}
	if err != nil {
		return assembly.Checkpoint{}, false, fmt.Errorf("load checkpoint %s: %w", s.path, err)
	}
	cp, err = assembly.UnmarshalCheckpoint(data)
	if err != nil {
		return assembly.Checkpoint{}, false, fmt.Errorf("load checkpoint %s: %w", s.path, err)
	}
	return cp, true, nil
}

// Remove deletes the checkpoint file. Missing files are not an error.
func (s *CheckpointStore) Remove() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint %s: %w", s.path, err)
	}
	return nil
}
