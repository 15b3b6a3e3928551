package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/pithecene-io/qrtx/frame"
	"github.com/pithecene-io/qrtx/payload"
)

func TestBuildFrames_HelloWorld(t *testing.T) {
	seq, err := BuildFrames(payload.NewFile("a.txt", []byte("hello world")), SendOptions{ChunkSize: 7})
	if err != nil {
		t.Fatalf("BuildFrames failed: %v", err)
	}
	if len(seq.Frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(seq.Frames))
	}
	if seq.EncodedSize != 18 {
		t.Errorf("EncodedSize = %d, want 18", seq.EncodedSize)
	}
	for i, f := range seq.Frames {
		if !strings.HasPrefix(f[:8], frame.Format(i, 3, nil)) {
			t.Errorf("frame %d header = %q", i, f[:8])
		}
	}
}

func TestBuildFrames_DoesNotModifySource(t *testing.T) {
	c := payload.NewFile("big.txt", []byte(strings.Repeat("compressible ", 100)))
	if _, err := BuildFrames(c, SendOptions{Compress: true}); err != nil {
		t.Fatalf("BuildFrames failed: %v", err)
	}
	if c.Compressed {
		t.Error("BuildFrames compressed the caller's container")
	}
	if string(c.Body) != strings.Repeat("compressible ", 100) {
		t.Error("BuildFrames changed the caller's body")
	}
}

func TestBuildFrames_DefaultChunkSize(t *testing.T) {
	body := make([]byte, 1000)
	seq, err := BuildFrames(payload.NewFile("zeros.bin", body), SendOptions{})
	if err != nil {
		t.Fatalf("BuildFrames failed: %v", err)
	}
	for i, f := range seq.Frames {
		if len(f) > frame.DefaultCapacity {
			t.Errorf("frame %d length %d exceeds %d", i, len(f), frame.DefaultCapacity)
		}
	}
}

func TestBuildFrames_NameDoesNotFit(t *testing.T) {
	_, err := BuildFrames(payload.NewFile("long-file-name.txt", []byte("x")), SendOptions{ChunkSize: 4})
	if !errors.Is(err, frame.ErrNameDoesNotFit) {
		t.Errorf("error = %v, want ErrNameDoesNotFit", err)
	}
}

func TestSender_Navigation(t *testing.T) {
	s := NewSender()
	if err := s.Load(payload.NewFile("a.txt", []byte("hello world")), SendOptions{ChunkSize: 7}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	frames := s.Frames()

	tests := []struct {
		name string
		op   func() (string, int, error)
		want int
	}{
		{"current", s.Current, 0},
		{"prev wraps to last", s.Prev, 2},
		{"next wraps to first", s.Next, 0},
		{"next", s.Next, 1},
		{"next", s.Next, 2},
		{"next wraps", s.Next, 0},
		{"seek", func() (string, int, error) { return s.Seek(2) }, 2},
		{"seek negative", func() (string, int, error) { return s.Seek(-1) }, 2},
		{"seek past end", func() (string, int, error) { return s.Seek(4) }, 1},
	}

	for _, tt := range tests {
		text, index, err := tt.op()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if index != tt.want {
			t.Errorf("%s: index = %d, want %d", tt.name, index, tt.want)
		}
		if text != frames[tt.want] {
			t.Errorf("%s: text does not match frame %d", tt.name, tt.want)
		}
	}
}

func TestSender_SingleFrameWraps(t *testing.T) {
	s := NewSender()
	if err := s.Load(payload.NewText("hi"), SendOptions{ChunkSize: 64}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	for _, op := range []func() (string, int, error){s.Next, s.Prev} {
		if _, index, err := op(); err != nil || index != 0 {
			t.Errorf("index = %d, err = %v, want 0, nil", index, err)
		}
	}
}

func TestSender_Empty(t *testing.T) {
	s := NewSender()
	for _, op := range []func() (string, int, error){s.Current, s.Next, s.Prev} {
		if _, _, err := op(); !errors.Is(err, ErrNoFrames) {
			t.Errorf("error = %v, want ErrNoFrames", err)
		}
	}
	if _, _, err := s.Seek(3); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Seek error = %v, want ErrNoFrames", err)
	}
	if s.Name() != "" || s.Frames() != nil {
		t.Error("empty sender should report no name and no frames")
	}
}

func TestSender_LoadRewindsAndKeepsOldOnFailure(t *testing.T) {
	s := NewSender()
	if err := s.Load(payload.NewFile("a.txt", []byte("hello world")), SendOptions{ChunkSize: 7}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, _, err := s.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	err := s.Load(payload.NewFile("much-longer-name.txt", []byte("x")), SendOptions{ChunkSize: 7})
	if err == nil {
		t.Fatal("expected Load to fail")
	}
	if _, index, _ := s.Current(); index != 1 || s.Name() != "a.txt" {
		t.Errorf("failed Load changed state: index %d name %q", index, s.Name())
	}

	if err := s.Load(payload.NewText("new clipboard text"), SendOptions{ChunkSize: 32}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, index, _ := s.Current(); index != 0 {
		t.Errorf("index after Load = %d, want 0", index)
	}
	if s.Name() != payload.ClipboardName {
		t.Errorf("Name = %q, want %q", s.Name(), payload.ClipboardName)
	}

	s.Reset()
	if s.Len() != 0 {
		t.Error("Reset should unload frames")
	}
}
