package source

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// ReaderSource reads lines from an io.Reader until EOF.
type ReaderSource struct {
	name string
	r    io.Reader
	seq  atomic.Uint64
}

// NewReaderSource creates a source over r.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

// NewStdinSource creates a source that reads from stdin (pipe mode).
func NewStdinSource() *ReaderSource {
	return NewReaderSource("stdin", os.Stdin)
}

// Name returns the source identifier.
func (s *ReaderSource) Name() string { return s.name }

// Start reads lines in the background.
func (s *ReaderSource) Start(ctx context.Context) (<-chan Line, error) {
	ch := make(chan Line, 256)
	go func() {
		defer close(ch)
		_ = scan(ctx, s.r, func(text string) bool {
			return send(ctx, ch, Line{
				Time:   time.Now(),
				Stream: s.name,
				Origin: s.name,
				Text:   text,
				Seq:    s.seq.Add(1),
			})
		})
	}()
	return ch, nil
}
