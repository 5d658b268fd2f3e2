package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorePersistsToFile(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "notes.db")

	s, err := NewSQLiteStoreWithDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, s.PutNote(&Note{Address: addrA, Blob: []byte("sealed"), UpdatedAt: 42}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStoreWithDSN(dsn)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetNote(addrA)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("sealed"), got.Blob)
}

func TestSQLiteStoreReturnsCopies(t *testing.T) {
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutNote(&Note{Address: addrA, Blob: []byte("abc"), UpdatedAt: 1}))
	got, err := s.GetNote(addrA)
	require.NoError(t, err)
	got.Blob[0] = 'z'

	again, err := s.GetNote(addrA)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Blob)
}
