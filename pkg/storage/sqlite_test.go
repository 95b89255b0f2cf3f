package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pinmap.db")

	kv, err := Open(path)
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get("user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("user", "alice"))
	require.NoError(t, kv.Set("user", "bob"))

	value, ok, err := kv.Get("user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", value)

	require.NoError(t, kv.Delete("user"))
	require.NoError(t, kv.Delete("user"))

	_, ok, err = kv.Get("user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinmap.db")

	kv, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("user", "alice"))
	require.NoError(t, kv.Close())

	kv, err = Open(path)
	require.NoError(t, err)
	defer kv.Close()

	value, ok, err := kv.Get("user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", value)
}
