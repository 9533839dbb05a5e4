// Package chain provides Chain, the immutable content value exchanged at
// every seam of a pipe.
//
// A Chain holds arbitrary binary data with optional sub-byte padding, or
// text. Exactly one representation is canonical when the Chain is created;
// the others (bytes, code points, native string) are derived on first use
// and cached. Derived values never change, so a Chain is safe for concurrent
// use.
//
//	c := chain.FromString("hello")
//	b := c.Bytes()                 // UTF-8 encoded
//	d, err := chain.FromBits(b, 0) // binary backed, same content
//	c.Equal(d)                     // true
package chain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// describeLimit bounds the preview length produced by Describe.
const describeLimit = 32

// Chain is an immutable byte/text value. The zero value is not usable;
// construct chains with the From* functions or Empty.
type Chain struct {
	// text is true when the canonical representation is text
	// (string or code points). Text chains always hold valid UTF-8.
	text bool

	mu sync.Mutex

	bytes    []byte
	padding  int
	hasBytes bool

	codePoints    []rune
	hasCodePoints bool

	str    string
	hasStr bool
}

var empty = &Chain{text: true, hasStr: true}

// Empty returns the empty text chain.
func Empty() *Chain {
	return empty
}

// FromString creates a text chain. Strings that are not valid UTF-8 are
// kept verbatim as binary content.
func FromString(s string) *Chain {
	if !utf8.ValidString(s) {
		return &Chain{bytes: []byte(s), hasBytes: true}
	}
	return &Chain{text: true, str: s, hasStr: true}
}

// FromCodePoints creates a text chain from Unicode code points. Surrogates
// and values beyond U+10FFFF are rejected.
func FromCodePoints(codePoints []rune) (*Chain, error) {
	for i, r := range codePoints {
		if !utf8.ValidRune(r) {
			return nil, InvalidInput("invalid code point U+%04X at index %d", r, i)
		}
	}
	return &Chain{
		text:          true,
		codePoints:    slices.Clone(codePoints),
		hasCodePoints: true,
	}, nil
}

// FromBytes creates a binary chain without padding.
func FromBytes(b []byte) *Chain {
	return &Chain{bytes: bytes.Clone(b), hasBytes: true}
}

// FromBits creates a binary chain whose last byte carries padding unused
// trailing bits (0-7). Padding bits are normalized to zero.
func FromBits(b []byte, padding int) (*Chain, error) {
	if padding < 0 || padding > 7 {
		return nil, InvalidInput("padding must be between 0 and 7, got %d", padding)
	}
	if padding > 0 && len(b) == 0 {
		return nil, InvalidInput("padding of %d bits on empty data", padding)
	}
	buf := bytes.Clone(b)
	if padding > 0 {
		buf[len(buf)-1] &^= byte(1<<padding - 1)
	}
	return &Chain{bytes: buf, padding: padding, hasBytes: true}, nil
}

// IsText reports whether the chain was created from text.
func (c *Chain) IsText() bool {
	return c.text
}

// Padding returns the number of unused trailing bits of the last byte.
func (c *Chain) Padding() int {
	return c.padding
}

// Bytes returns a copy of the binary representation. Text chains are
// UTF-8 encoded.
func (c *Chain) Bytes() []byte {
	return bytes.Clone(c.rawBytes())
}

// rawBytes returns the cached byte slice; callers must not modify it.
func (c *Chain) rawBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasBytes {
		if c.hasStr {
			c.bytes = []byte(c.str)
		} else {
			c.bytes = []byte(string(c.codePoints))
		}
		c.hasBytes = true
	}
	return c.bytes
}

// checkDecodable fails when the binary representation cannot be read as
// UTF-8 text. Must be called with c.mu held.
func (c *Chain) checkDecodable() error {
	if c.padding != 0 {
		return InvalidInput("content with %d padding bits cannot be read as text", c.padding)
	}
	if !utf8.Valid(c.bytes) {
		return InvalidInput("malformed UTF-8 sequence at byte %d", invalidOffset(c.bytes))
	}
	return nil
}

// CodePoints returns a copy of the Unicode code points.
func (c *Chain) CodePoints() ([]rune, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasCodePoints {
		switch {
		case c.hasStr:
			c.codePoints = []rune(c.str)
		default:
			if err := c.checkDecodable(); err != nil {
				return nil, err
			}
			c.codePoints = []rune(string(c.bytes))
		}
		c.hasCodePoints = true
	}
	return slices.Clone(c.codePoints), nil
}

// Text returns the content as a native string.
func (c *Chain) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasStr {
		switch {
		case c.hasCodePoints:
			c.str = string(c.codePoints)
		default:
			if err := c.checkDecodable(); err != nil {
				return "", err
			}
			c.str = string(c.bytes)
		}
		c.hasStr = true
	}
	return c.str, nil
}

// Len returns the number of code points.
func (c *Chain) Len() (int, error) {
	s, err := c.Text()
	if err != nil {
		return 0, err
	}
	return utf8.RuneCountInString(s), nil
}

// BitLen returns the number of significant bits.
func (c *Chain) BitLen() int {
	return len(c.rawBytes())*8 - c.padding
}

// Size returns the number of units of unitBits bits needed to hold the
// content, rounding up. Size(8) is the byte count.
func (c *Chain) Size(unitBits int) int {
	if unitBits <= 0 {
		return 0
	}
	return (c.BitLen() + unitBits - 1) / unitBits
}

// IsEmpty reports whether the chain holds no data.
func (c *Chain) IsEmpty() bool {
	return c.BitLen() == 0
}

// Substr returns length code points starting at start. A negative start
// counts from the end. Out of range arguments are clamped.
func (c *Chain) Substr(start, length int) (*Chain, error) {
	codePoints, err := c.CodePoints()
	if err != nil {
		return nil, err
	}
	n := len(codePoints)
	if start < 0 {
		start = max(0, n+start)
	}
	start = min(start, n)
	end := min(n, start+max(0, length))
	return &Chain{text: true, codePoints: codePoints[start:end], hasCodePoints: true}, nil
}

// Split slices the text around each occurrence of sep.
func (c *Chain) Split(sep string) ([]*Chain, error) {
	s, err := c.Text()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	chains := make([]*Chain, len(parts))
	for i, part := range parts {
		chains[i] = &Chain{text: true, str: part, hasStr: true}
	}
	return chains, nil
}

// ToLower returns the text mapped to lower case.
func (c *Chain) ToLower() (*Chain, error) {
	s, err := c.Text()
	if err != nil {
		return nil, err
	}
	return FromString(cases.Lower(language.Und).String(s)), nil
}

// ToUpper returns the text mapped to upper case.
func (c *Chain) ToUpper() (*Chain, error) {
	s, err := c.Text()
	if err != nil {
		return nil, err
	}
	return FromString(cases.Upper(language.Und).String(s)), nil
}

// Contains reports whether needle occurs in c. Text chains are compared as
// text; anything else is compared byte-wise, which requires both sides to
// be byte aligned.
func (c *Chain) Contains(needle *Chain) bool {
	if c.text && needle.text {
		haystack, _ := c.Text()
		n, _ := needle.Text()
		return strings.Contains(haystack, n)
	}
	if c.padding != 0 || needle.padding != 0 {
		return false
	}
	return bytes.Contains(c.rawBytes(), needle.rawBytes())
}

// Equal reports whether both chains hold the same content. Text chains
// are compared as strings, everything else by normalized bytes and padding.
func (c *Chain) Equal(other *Chain) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	if c.text && other.text {
		a, _ := c.Text()
		b, _ := other.Text()
		return a == b
	}
	return c.padding == other.padding && bytes.Equal(c.rawBytes(), other.rawBytes())
}

// Describe returns a bounded debug representation, never the full content.
func (c *Chain) Describe() string {
	if c.text {
		s, _ := c.Text()
		n := utf8.RuneCountInString(s)
		if n > describeLimit {
			runes := []rune(s)[:describeLimit]
			return fmt.Sprintf("Chain(%d chars: %q…)", n, string(runes))
		}
		return fmt.Sprintf("Chain(%d chars: %q)", n, s)
	}
	b := c.rawBytes()
	preview := b
	suffix := ""
	if len(preview) > describeLimit/2 {
		preview = preview[:describeLimit/2]
		suffix = "…"
	}
	if c.padding > 0 {
		return fmt.Sprintf("Chain(%d bytes, %d padding bits: %s%s)", len(b), c.padding, hex.EncodeToString(preview), suffix)
	}
	return fmt.Sprintf("Chain(%d bytes: %s%s)", len(b), hex.EncodeToString(preview), suffix)
}

// String implements fmt.Stringer with Describe, so chains can be logged
// without dumping their content.
func (c *Chain) String() string {
	return c.Describe()
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
