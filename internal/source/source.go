// Package source reads raw log lines from stdin, files, commands and
// containers so the CLI can replay them through a pipeline.
package source

import (
	"bufio"
	"context"
	"io"
	"time"
)

// Line is one raw line read from a source.
type Line struct {
	Time   time.Time
	Stream string // stdin, stdout, stderr, file
	Origin string // source name
	Text   string
	Seq    uint64
}

// Source emits lines on a channel. Implementations must close the returned
// channel when the source is exhausted or ctx is cancelled.
type Source interface {
	Start(ctx context.Context) (<-chan Line, error)
	Name() string
}

const (
	initialLineBuffer = 64 * 1024
	maxLineLength     = 1024 * 1024
)

// scan reads lines from r and passes each to emit until r is exhausted,
// ctx is cancelled or emit returns false.
func scan(ctx context.Context, r io.Reader, emit func(text string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineLength)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !emit(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// send delivers l unless ctx is cancelled first.
func send(ctx context.Context, ch chan<- Line, l Line) bool {
	select {
	case ch <- l:
		return true
	case <-ctx.Done():
		return false
	}
}
