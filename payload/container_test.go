package payload

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestContainer_CompressDecompressRoundTrip(t *testing.T) {
	body := []byte(strings.Repeat("hello world ", 200))
	c := NewFile("a.txt", append([]byte(nil), body...))

	if err := c.Compress(); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !c.Compressed {
		t.Fatal("Compressed flag not set")
	}
	if len(c.Body) >= len(body) {
		t.Errorf("compressed size %d not smaller than %d", len(c.Body), len(body))
	}

	if err := c.Decompress(); err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if c.Compressed {
		t.Error("Compressed flag still set after Decompress")
	}
	if !bytes.Equal(c.Body, body) {
		t.Error("body changed across compress/decompress")
	}
}

func TestContainer_CompressIsIdempotent(t *testing.T) {
	c := NewFile("a.bin", []byte{1, 2, 3})
	if err := c.Compress(); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	once := append([]byte(nil), c.Body...)
	if err := c.Compress(); err != nil {
		t.Fatalf("second Compress failed: %v", err)
	}
	if !bytes.Equal(once, c.Body) {
		t.Error("second Compress modified body")
	}
}

func TestContainer_DecompressIdempotentOnSuccess(t *testing.T) {
	c := NewFile("a.bin", []byte("abc"))
	if err := c.Compress(); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if err := c.Decompress(); err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if err := c.Decompress(); err != nil {
		t.Fatalf("second Decompress failed: %v", err)
	}
	if string(c.Body) != "abc" {
		t.Errorf("Body = %q, want %q", c.Body, "abc")
	}
}

func TestContainer_DecompressCorrupt(t *testing.T) {
	tests := []struct {
		name string
		body func() []byte
	}{
		{"garbage header", func() []byte { return []byte("not a zlib stream") }},
		{"empty", func() []byte { return nil }},
		{"bad checksum", func() []byte {
			c := NewFile("x", []byte("checksum me please"))
			if err := c.Compress(); err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			b := append([]byte(nil), c.Body...)
			b[len(b)-1] ^= 0xFF
			return b
		}},
		{"truncated", func() []byte {
			c := NewFile("x", []byte(strings.Repeat("truncate ", 50)))
			if err := c.Compress(); err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			return c.Body[:len(c.Body)/2]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body()
			c := &Container{Name: "x", Body: body, Compressed: true}
			err := c.Decompress()
			if !errors.Is(err, ErrCorruptPayload) {
				t.Fatalf("Decompress error = %v, want ErrCorruptPayload", err)
			}
			if !c.Compressed {
				t.Error("failed Decompress must leave container unchanged")
			}
		})
	}
}

func TestContainer_Text(t *testing.T) {
	c := NewText("привет, мир")
	if !c.IsClipboard() {
		t.Fatal("NewText should produce a clipboard container")
	}
	if c.Name != ClipboardName {
		t.Errorf("Name = %q, want %q", c.Name, ClipboardName)
	}
	text, err := c.Text()
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if text != "привет, мир" {
		t.Errorf("Text = %q", text)
	}

	bad := &Container{Body: []byte{0xff, 0xfe}}
	if _, err := bad.Text(); !errors.Is(err, ErrNotText) {
		t.Errorf("Text error = %v, want ErrNotText", err)
	}
}

func TestContainer_Kind(t *testing.T) {
	if got := NewText("x").Kind(); got != "clipboard" {
		t.Errorf("Kind = %q, want clipboard", got)
	}
	if got := NewFile("a", nil).Kind(); got != "file" {
		t.Errorf("Kind = %q, want file", got)
	}
}
