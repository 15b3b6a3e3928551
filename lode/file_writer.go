package lode

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// FileWriter persists received files.
type FileWriter interface {
	// PutFile stores data under name, replacing any existing file.
	// Returns the storage key written and whether a file was replaced.
	PutFile(ctx context.Context, name string, data []byte) (key string, overwritten bool, err error)
}

// StoreFileWriter writes files into a Lode Store under a fixed prefix.
// Files bypass Dataset segment/manifest machinery entirely.
type StoreFileWriter struct {
	factory lode.StoreFactory
	prefix  string

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// Verify StoreFileWriter implements FileWriter.
var _ FileWriter = (*StoreFileWriter)(nil)

// NewStoreFileWriter creates a writer placing files under prefix.
// The store is created lazily on first write.
func NewStoreFileWriter(factory lode.StoreFactory, prefix string) *StoreFileWriter {
	return &StoreFileWriter{factory: factory, prefix: strings.Trim(prefix, "/")}
}

// PutFile implements FileWriter.
func (w *StoreFileWriter) PutFile(ctx context.Context, name string, data []byte) (string, bool, error) {
	key, err := w.key(name)
	if err != nil {
		return "", false, err
	}

	store, err := w.getOrCreateStore()
	if err != nil {
		return "", false, WrapInitError(err, key)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		return "", false, WrapReadError(err, key)
	}
	if exists {
		if err := store.Delete(ctx, key); err != nil {
			return "", false, WrapWriteError(err, key)
		}
	}

	if err := store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return "", false, WrapWriteError(err, key)
	}
	return key, exists, nil
}

// getOrCreateStore lazily initializes the Store from the factory.
func (w *StoreFileWriter) getOrCreateStore() (lode.Store, error) {
	w.storeOnce.Do(func() {
		w.store, w.storeErr = w.factory()
	})
	return w.store, w.storeErr
}

// key computes the storage key for name. Format: <prefix>/<name>.
func (w *StoreFileWriter) key(name string) (string, error) {
	if err := ValidateFileName(name); err != nil {
		return "", err
	}
	if w.prefix == "" {
		return name, nil
	}
	return path.Join(w.prefix, name), nil
}

// ValidateFileName rejects names that would escape a sink's root.
// The name must be a single path element.
func ValidateFileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return NewStorageError(ErrInvalidName, "write", name, fmt.Errorf("name %q is not a file name", name))
	case strings.ContainsAny(name, "/\\\x00"):
		return NewStorageError(ErrInvalidName, "write", name, fmt.Errorf("name %q contains a path separator", name))
	}
	return nil
}

// StubFileWriter records PutFile calls for testing.
type StubFileWriter struct {
	mu    sync.Mutex
	Files []StubFileRecord
	// Err, when set, is returned by every PutFile call.
	Err error
}

// StubFileRecord is a recorded file write for testing.
type StubFileRecord struct {
	Name string
	Data []byte
}

// NewStubFileWriter creates a new stub file writer.
func NewStubFileWriter() *StubFileWriter {
	return &StubFileWriter{}
}

// PutFile implements FileWriter by recording the call.
func (w *StubFileWriter) PutFile(_ context.Context, name string, data []byte) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Err != nil {
		return "", false, w.Err
	}
	overwritten := false
	for _, f := range w.Files {
		if f.Name == name {
			overwritten = true
		}
	}
	w.Files = append(w.Files, StubFileRecord{Name: name, Data: append([]byte(nil), data...)})
	return name, overwritten, nil
}

// Verify StubFileWriter implements FileWriter.
var _ FileWriter = (*StubFileWriter)(nil)
