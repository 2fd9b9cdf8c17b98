package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnybridge/mnybridge/internal/errors"
)

func tempStore(t *testing.T, passphrase string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "secrets.bin"), []byte(passphrase))
	require.NoError(t, err)
	return s
}

func TestSetGetClear(t *testing.T) {
	s := tempStore(t, "passphrase")

	_, ok, err := s.Get("ledger.mny")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("ledger.mny", "hunter2"))
	secret, ok, err := s.Get("ledger.mny")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", secret)

	require.NoError(t, s.Clear("ledger.mny"))
	_, ok, err = s.Get("ledger.mny")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Clear("ledger.mny"), "clearing twice is fine")
}

func TestPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.bin")

	s, err := Open(path, []byte("pp"))
	require.NoError(t, err)
	require.NoError(t, s.Set("a.mny", "one"))
	require.NoError(t, s.Set("b.mny", "two"))

	again, err := Open(path, []byte("pp"))
	require.NoError(t, err)
	secret, ok, err := again.Get("b.mny")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", secret)
}

func TestWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.bin")

	s, err := Open(path, []byte("right"))
	require.NoError(t, err)
	require.NoError(t, s.Set("a.mny", "one"))

	wrong, err := Open(path, []byte("wrong"))
	require.NoError(t, err)
	_, _, err = wrong.Get("a.mny")
	require.Error(t, err)
	assert.Equal(t, errors.CodeBadPassword, errors.GetCode(err))
}

func TestFileStaysSealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.bin")
	s, err := Open(path, []byte("pp"))
	require.NoError(t, err)
	require.NoError(t, s.Set("a.mny", "plaintext-password"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext-password")
}
