package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapIsScoped(t *testing.T) {
	base := With(context.Background(), "user", "ana")
	child := WithMap(base, map[string]string{"tenant": "acme", "user": "bob"})

	v, _ := Map(base).Get("user")
	assert.Equal(t, "ana", v)
	v, _ = Map(child).Get("user")
	assert.Equal(t, "bob", v)
	assert.Equal(t, 2, Map(child).Len())

	trimmed := Without(child, "tenant")
	_, ok := Map(trimmed).Get("tenant")
	assert.False(t, ok)
	assert.Equal(t, 2, Map(child).Len())
}

func TestStackPopsWithScope(t *testing.T) {
	outer := Push(context.Background(), "request")
	inner := Push(outer, "db")
	sibling := Push(outer, "cache")

	assert.Equal(t, []string{"request"}, Stack(outer))
	assert.Equal(t, []string{"request", "db"}, Stack(inner))
	assert.Equal(t, []string{"request", "cache"}, Stack(sibling))
}

func TestThreadName(t *testing.T) {
	ctx := WithThreadName(context.Background(), "worker-1")
	ctx = With(ctx, "k", "v")
	assert.Equal(t, "worker-1", ThreadName(ctx))
	assert.Empty(t, ThreadName(context.Background()))
}

func TestEmptyContext(t *testing.T) {
	assert.Zero(t, Map(nil).Len())
	assert.Nil(t, Stack(context.Background()))
}
