package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kass/go-pinmap/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk on fire") }
func (failingStore) Set(string, string) error         { return errors.New("disk on fire") }
func (failingStore) Delete(string) error              { return errors.New("disk on fire") }

func openStore(t *testing.T) *storage.KV {
	t.Helper()
	kv, err := storage.Open(filepath.Join(t.TempDir(), "pinmap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestOwns(t *testing.T) {
	var absent *Session
	assert.False(t, absent.Owns("alice"))
	assert.False(t, absent.Owns(""))

	s := &Session{Username: "alice"}
	assert.True(t, s.Owns("alice"))
	assert.False(t, s.Owns("bob"))
}

func TestLoginRestoreLogout(t *testing.T) {
	kv := openStore(t)
	m := NewManager(kv)

	s, err := m.Restore()
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = m.Login("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Username)

	value, ok, err := kv.Get(UserKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", value)

	// A new manager on the same store sees the session
	restored, err := NewManager(kv).Restore()
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "alice", restored.Username)

	require.NoError(t, m.Logout())
	s, err = m.Restore()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLoginRejectsEmptyUsername(t *testing.T) {
	m := NewManager(openStore(t))
	_, err := m.Login("")
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestStoreFailures(t *testing.T) {
	m := NewManager(failingStore{})

	_, err := m.Restore()
	assert.Error(t, err)
	_, err = m.Login("alice")
	assert.Error(t, err)
	assert.Error(t, m.Logout())
}
