package popups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleTwiceRestores(t *testing.T) {
	v := New()

	assert.True(t, v.Toggle("p1"))
	assert.True(t, v.IsOpen("p1"))

	assert.False(t, v.Toggle("p1"))
	assert.False(t, v.IsOpen("p1"))
	assert.True(t, v.Known("p1"))
}

func TestToggleIsIndependent(t *testing.T) {
	v := New()
	v.Toggle("p1")
	v.Toggle("p2")

	v.Toggle("p1")
	assert.False(t, v.IsOpen("p1"))
	assert.True(t, v.IsOpen("p2"))
	assert.False(t, v.Known("p3"))
}

func TestManyOpen(t *testing.T) {
	v := New()
	for _, id := range []string{"c", "a", "b"} {
		v.Toggle(id)
	}
	assert.Equal(t, []string{"c", "a", "b"}, v.OpenIDs())

	v.Close("a")
	assert.Equal(t, []string{"c", "b"}, v.OpenIDs())
}

func TestClose(t *testing.T) {
	v := New()
	v.Toggle("p1")

	v.Close("p1")
	v.Close("p1")
	assert.False(t, v.IsOpen("p1"))

	// Closing an unclicked pin records nothing
	v.Close("p9")
	assert.False(t, v.Known("p9"))

	assert.True(t, v.Toggle("p1"))
}

func TestMissingIsClosed(t *testing.T) {
	v := New()
	assert.False(t, v.IsOpen("nope"))
	assert.Empty(t, v.OpenIDs())
}
