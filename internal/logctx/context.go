// Package logctx carries the per-request context map and context stack
// explicitly through context.Context instead of goroutine-global state.
package logctx

import (
	"context"

	"github.com/Geun-Oh/lxpipe/internal/event"
)

type ctxKey struct{}

type data struct {
	m     event.ContextMap
	stack []string
	name  string
}

func from(ctx context.Context) data {
	if ctx == nil {
		return data{}
	}
	d, _ := ctx.Value(ctxKey{}).(data)
	return d
}

// With returns a child context whose map has key set to value.
func With(ctx context.Context, key, value string) context.Context {
	d := from(ctx)
	d.m = d.m.With(key, value)
	return context.WithValue(ctx, ctxKey{}, d)
}

// WithMap returns a child context with every pair of kv added to the map.
func WithMap(ctx context.Context, kv map[string]string) context.Context {
	d := from(ctx)
	for k, v := range kv {
		d.m = d.m.With(k, v)
	}
	return context.WithValue(ctx, ctxKey{}, d)
}

// Without returns a child context with key removed from the map.
func Without(ctx context.Context, key string) context.Context {
	d := from(ctx)
	d.m = d.m.Without(key)
	return context.WithValue(ctx, ctxKey{}, d)
}

// Push returns a child context with msg pushed on the context stack.
// The parent context is unaffected, so leaving the scope pops implicitly.
func Push(ctx context.Context, msg string) context.Context {
	d := from(ctx)
	stack := make([]string, len(d.stack), len(d.stack)+1)
	copy(stack, d.stack)
	d.stack = append(stack, msg)
	return context.WithValue(ctx, ctxKey{}, d)
}

// WithThreadName returns a child context that names the logical thread of execution.
func WithThreadName(ctx context.Context, name string) context.Context {
	d := from(ctx)
	d.name = name
	return context.WithValue(ctx, ctxKey{}, d)
}

// Map returns the context map snapshot.
func Map(ctx context.Context) event.ContextMap { return from(ctx).m }

// Stack returns the context stack, oldest first. The slice must not be modified.
func Stack(ctx context.Context) []string { return from(ctx).stack }

// ThreadName returns the logical thread name, if any.
func ThreadName(ctx context.Context) string { return from(ctx).name }
