package pairingstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "pairings.yaml"))
	require.NoError(t, err)
	_, ok := s.Lookup("aa:bb:cc:dd:ee:ff")
	assert.False(t, ok)
}

func TestStore_SaveThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairings.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("aa:bb:cc:dd:ee:ff", 123456))

	reloaded, err := Open(path)
	require.NoError(t, err)
	code, ok := reloaded.Lookup("aa:bb:cc:dd:ee:ff")
	require.True(t, ok)
	assert.Equal(t, uint32(123456), code)
}

func TestStore_SaveOverwritesExistingCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairings.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("aa:bb:cc:dd:ee:ff", 1))
	require.NoError(t, s.Save("aa:bb:cc:dd:ee:ff", 2))

	code, ok := s.Lookup("aa:bb:cc:dd:ee:ff")
	require.True(t, ok)
	assert.Equal(t, uint32(2), code)
}
