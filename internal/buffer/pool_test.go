package buffer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextTrimKeepsSmallBuffers(t *testing.T) {
	b := New()
	_, _ = b.WriteString("hello")
	_ = b.WriteByte(' ')
	_, _ = b.WriteRune('ü')
	assert.Equal(t, "hello ü", b.String())

	c := b.Cap()
	Cleaner(0)(b)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, c, b.Cap())
}

func TestTextTrimDropsOversizedBuffers(t *testing.T) {
	b := New()
	_, _ = b.WriteString(strings.Repeat("x", 4096))
	Cleaner(1024)(b)
	assert.Equal(t, 0, b.Len())
	assert.LessOrEqual(t, b.Cap(), 1024)
}
