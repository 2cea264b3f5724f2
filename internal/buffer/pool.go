// Package buffer provides the reusable text buffers recycled by the pipeline.
package buffer

import "unicode/utf8"

// DefaultMaxRetained is the largest capacity a recycled buffer keeps.
// Larger buffers are replaced with a fresh one on release.
const DefaultMaxRetained = 518

// DefaultInitial is the initial capacity of a new buffer.
const DefaultInitial = 256

// Text is a growable byte buffer used to render events.
type Text struct {
	B []byte
}

// New creates a Text with the default initial capacity.
func New() *Text {
	return &Text{B: make([]byte, 0, DefaultInitial)}
}

// Len returns the number of bytes written.
func (t *Text) Len() int { return len(t.B) }

// Cap returns the capacity of the underlying slice.
func (t *Text) Cap() int { return cap(t.B) }

// Reset empties the buffer, keeping its capacity.
func (t *Text) Reset() { t.B = t.B[:0] }

// Write implements io.Writer.
func (t *Text) Write(p []byte) (int, error) {
	t.B = append(t.B, p...)
	return len(p), nil
}

// WriteString appends s.
func (t *Text) WriteString(s string) (int, error) {
	t.B = append(t.B, s...)
	return len(s), nil
}

// WriteByte appends c.
func (t *Text) WriteByte(c byte) error {
	t.B = append(t.B, c)
	return nil
}

// WriteRune appends the UTF-8 encoding of r.
func (t *Text) WriteRune(r rune) (int, error) {
	n := len(t.B)
	t.B = utf8.AppendRune(t.B, r)
	return len(t.B) - n, nil
}

// String returns a copy of the contents.
func (t *Text) String() string { return string(t.B) }

// Trim resets the buffer and drops its storage if it grew beyond maxRetained.
func (t *Text) Trim(maxRetained int) {
	if cap(t.B) > maxRetained {
		t.B = make([]byte, 0, min(DefaultInitial, maxRetained))
		return
	}
	t.B = t.B[:0]
}

// Cleaner returns a release hook that trims buffers to maxRetained.
// A non-positive maxRetained means DefaultMaxRetained.
func Cleaner(maxRetained int) func(*Text) {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	return func(t *Text) { t.Trim(maxRetained) }
}
