package recycler

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/Geun-Oh/lxpipe/internal/queue"
	"github.com/pkg/errors"
)

// Kind selects a recycling strategy. The zero Kind is KindThreadLocal.
type Kind int

const (
	KindThreadLocal Kind = iota
	KindDummy
	KindQueue
)

func (k Kind) String() string {
	switch k {
	case KindDummy:
		return "dummy"
	case KindThreadLocal:
		return "threadLocal"
	case KindQueue:
		return "queue"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Strategy is a parsed recycler selector.
type Strategy struct {
	Kind Kind

	// Capacity is the per-owner depth for KindThreadLocal and the shared
	// queue size for KindQueue.
	Capacity int

	// Supplier names the queue implementation backing KindQueue.
	Supplier string
}

// DefaultQueueCapacity is used for KindQueue when no capacity is given.
func DefaultQueueCapacity() int {
	return max(2*runtime.GOMAXPROCS(0)+1, 8)
}

// Parse reads a selector of the form
//
//	dummy
//	threadLocal[:capacity=N]
//	queue[:supplier=<name>,capacity=N]
//
// An empty selector means threadLocal with capacity 1.
func Parse(selector string) (Strategy, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Strategy{Kind: KindThreadLocal, Capacity: 1}, nil
	}
	name, rest, _ := strings.Cut(selector, ":")
	params, err := parseParams(rest)
	if err != nil {
		return Strategy{}, errors.Wrapf(err, "recycler %q", selector)
	}

	var s Strategy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dummy":
		if len(params) > 0 {
			return Strategy{}, errors.Errorf("recycler %q: dummy takes no parameters", selector)
		}
		return Strategy{Kind: KindDummy}, nil
	case "threadlocal":
		s = Strategy{Kind: KindThreadLocal, Capacity: 1}
	case "queue":
		s = Strategy{Kind: KindQueue, Capacity: DefaultQueueCapacity(), Supplier: queue.Ring}
	default:
		return Strategy{}, errors.Errorf("recycler %q: unknown strategy %q", selector, name)
	}

	for k, v := range params {
		switch k {
		case "capacity":
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return Strategy{}, errors.Errorf("recycler %q: invalid capacity %q", selector, v)
			}
			s.Capacity = n
		case "supplier":
			if s.Kind != KindQueue {
				return Strategy{}, errors.Errorf("recycler %q: supplier only applies to queue", selector)
			}
			s.Supplier = v
		default:
			return Strategy{}, errors.Errorf("recycler %q: unknown parameter %q", selector, k)
		}
	}
	return s, nil
}

func parseParams(s string) (map[string]string, error) {
	params := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return params, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, errors.Errorf("malformed parameter %q", part)
		}
		params[strings.ToLower(k)] = v
	}
	return params, nil
}

func (s Strategy) String() string {
	switch s.Kind {
	case KindThreadLocal:
		return fmt.Sprintf("threadLocal:capacity=%d", s.Capacity)
	case KindQueue:
		return fmt.Sprintf("queue:supplier=%s,capacity=%d", s.Supplier, s.Capacity)
	default:
		return s.Kind.String()
	}
}
