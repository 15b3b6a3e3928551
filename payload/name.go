package payload

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// The wire name reads each name byte as one ISO-8859-15 character. The
// charmap leaves the C1 range 0x80-0x9F undefined; those bytes map to the
// code points U+0080-U+009F so that every byte has exactly one character.
const (
	c1First = 0x80
	c1Last  = 0x9F
)

func wireRune(b byte) rune {
	if b >= c1First && b <= c1Last {
		return rune(b)
	}
	return charmap.ISO8859_15.DecodeByte(b)
}

func wireByte(r rune) (byte, bool) {
	if r >= c1First && r <= c1Last {
		return byte(r), true
	}
	return charmap.ISO8859_15.EncodeRune(r)
}

// encodeName returns the wire form of name: each UTF-8 byte of name
// reinterpreted as one ISO-8859-15 character.
func encodeName(name string) string {
	return wireNameFromBytes([]byte(name))
}

// DecodeName inverts the wire mapping: the wire characters are mapped back
// to bytes and the bytes read as UTF-8.
//
// Wire names whose bytes are not valid UTF-8 are returned unchanged.
func DecodeName(wire string) (string, error) {
	raw := make([]byte, 0, len(wire))
	for _, r := range wire {
		b, ok := wireByte(r)
		if !ok {
			return "", fmt.Errorf("payload: decode name %q: %U has no wire byte", wire, r)
		}
		raw = append(raw, b)
	}
	if !utf8.Valid(raw) {
		return wire, nil
	}
	return string(raw), nil
}

// wireNameFromBytes reads raw name bytes as wire characters.
func wireNameFromBytes(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw) * 2)
	for _, c := range raw {
		b.WriteRune(wireRune(c))
	}
	return b.String()
}
