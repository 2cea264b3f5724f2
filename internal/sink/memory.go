package sink

import (
	"sync"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
)

// Record is a copy of a delivered event.
type Record struct {
	Seq    uint64
	Level  event.Level
	Logger string
	Text   string
	Time   time.Time
	Event  *event.Event
}

// MemorySink keeps every delivered event in memory. OnDeliver, when set, is
// called on the delivering goroutine before the record is stored.
type MemorySink struct {
	OnDeliver func(r *event.Rendered)

	mu      sync.Mutex
	records []Record
	notify  chan struct{}
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{notify: make(chan struct{}, 1)}
}

// Deliver stores a copy of r.
func (s *MemorySink) Deliver(r *event.Rendered) error {
	if s.OnDeliver != nil {
		s.OnDeliver(r)
	}
	e := r.Event
	rec := Record{
		Seq:    e.Seq(),
		Level:  e.Level(),
		Logger: e.LoggerName(),
		Text:   string(r.Text),
		Time:   e.Time(),
		Event:  e,
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Records returns a copy of everything delivered so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Texts returns the rendered text of every record.
func (s *MemorySink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Text
	}
	return out
}

// Len returns the number of records.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// WaitFor blocks until at least n records are stored or timeout elapses,
// and reports whether n was reached.
func (s *MemorySink) WaitFor(n int, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if s.Len() >= n {
			return true
		}
		select {
		case <-s.notify:
		case <-timer.C:
			return s.Len() >= n
		}
	}
}

func (s *MemorySink) Flush() error { return nil }
func (s *MemorySink) Close() error { return nil }
func (s *MemorySink) Name() string { return "memory" }
