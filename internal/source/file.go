package source

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// FilePollInterval is how often a followed file is checked for new data.
var FilePollInterval = 100 * time.Millisecond

// FileSource reads log lines from a file, optionally following new writes (tail -f).
type FileSource struct {
	path   string
	follow bool
	seq    atomic.Uint64
}

// NewFileSource creates a source that reads from a file.
// If follow is true, it continues reading as new lines are appended.
func NewFileSource(path string, follow bool) *FileSource {
	return &FileSource{path: path, follow: follow}
}

// Name returns the source identifier.
func (s *FileSource) Name() string { return "file:" + s.path }

// Start opens the file and reads it in the background.
func (s *FileSource) Start(ctx context.Context) (<-chan Line, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open file %s", s.path)
	}

	ch := make(chan Line, 256)
	go func() {
		defer close(ch)
		defer f.Close()

		emit := func(text string) bool {
			return send(ctx, ch, Line{
				Time:   time.Now(),
				Stream: "file",
				Origin: s.Name(),
				Text:   text,
				Seq:    s.seq.Add(1),
			})
		}
		ticker := time.NewTicker(FilePollInterval)
		defer ticker.Stop()
		for {
			if err := scan(ctx, f, emit); err != nil || !s.follow {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}
