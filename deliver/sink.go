// Package deliver hands finished payloads to their destination.
//
// Clipboard text goes to a TextSink; named files go to a FileSink. Sink
// failures are reported distinctly from transfer failures: the payload was
// received intact and may be retried.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/qrtx/iox"
	"github.com/pithecene-io/qrtx/lode"
)

// FileSink persists named files. lode.StoreFileWriter and DirSink both
// implement it.
type FileSink = lode.FileWriter

// TextSink receives clipboard text.
type TextSink interface {
	// WriteText delivers text and returns a description of where it went.
	WriteText(ctx context.Context, text string) (location string, err error)
}

// DirSink writes files into a local directory, replacing existing files.
type DirSink struct {
	dir  string
	perm os.FileMode
}

// Verify DirSink implements FileSink.
var _ FileSink = (*DirSink)(nil)

// NewDirSink creates a sink writing into dir. The directory is created
// on first write when missing.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir, perm: 0o644}
}

// Dir returns the target directory.
func (s *DirSink) Dir() string {
	return s.dir
}

// PutFile implements FileSink. The file is written atomically: a reader
// never sees a partial file.
func (s *DirSink) PutFile(_ context.Context, name string, data []byte) (string, bool, error) {
	if err := lode.ValidateFileName(name); err != nil {
		return "", false, err
	}
	target := filepath.Join(s.dir, name)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", false, lode.WrapWriteError(err, s.dir)
	}

	info, err := os.Stat(target)
	overwritten := err == nil
	switch {
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", false, lode.WrapReadError(err, target)
	case overwritten && info.IsDir():
		return "", false, lode.NewStorageError(lode.ErrInvalidName, "write", target,
			fmt.Errorf("%s is a directory", target))
	}

	if err := iox.WriteFileAtomic(target, data, s.perm); err != nil {
		return "", false, lode.WrapWriteError(err, target)
	}
	return target, overwritten, nil
}

// WriterTextSink writes clipboard text to an io.Writer, one text per line.
// Used for stdout and --text-out files.
type WriterTextSink struct {
	mu       sync.Mutex
	w        io.Writer
	location string
}

// Verify WriterTextSink implements TextSink.
var _ TextSink = (*WriterTextSink)(nil)

// NewWriterTextSink creates a text sink. location names w in receipts
// (for example "stdout" or a file path).
func NewWriterTextSink(w io.Writer, location string) *WriterTextSink {
	return &WriterTextSink{w: w, location: location}
}

// WriteText implements TextSink.
func (s *WriterTextSink) WriteText(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, text); err != nil {
		return "", lode.WrapWriteError(err, s.location)
	}
	if len(text) == 0 || text[len(text)-1] != '\n' {
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return "", lode.WrapWriteError(err, s.location)
		}
	}
	return s.location, nil
}

// StubTextSink records texts for testing.
type StubTextSink struct {
	mu    sync.Mutex
	Texts []string
	Err   error
}

// WriteText implements TextSink by recording the text.
func (s *StubTextSink) WriteText(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	s.Texts = append(s.Texts, text)
	return "stub", nil
}
