package store

import (
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Store Factory for Testing Both Implementations
// =============================================================================

// storeFactory creates a store for testing.
// Every implementation runs the same test suite.
type storeFactory func() (NoteStore, error)

func memStoreFactory() (NoteStore, error) {
	return NewMemStore(), nil
}

func sqliteStoreFactory() (NoteStore, error) {
	return NewSQLiteStore()
}

func fsStoreFactory() (NoteStore, error) {
	fs, err := mem.NewFS()
	if err != nil {
		return nil, err
	}
	return NewFSStore(fs, "")
}

// runTestsForAllStores runs a test function against every store implementation.
func runTestsForAllStores(t *testing.T, testName string, testFn func(t *testing.T, store NoteStore)) {
	factories := map[string]storeFactory{
		"MemStore":    memStoreFactory,
		"SQLiteStore": sqliteStoreFactory,
		"FSStore":     fsStoreFactory,
	}

	for name, factory := range factories {
		t.Run(name+"/"+testName, func(t *testing.T) {
			store, err := factory()
			require.NoError(t, err, "Failed to create store")
			defer store.Close()
			testFn(t, store)
		})
	}
}

const (
	addrA = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"
	addrB = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"
)

// =============================================================================
// Note CRUD Tests
// =============================================================================

func TestPutAndGet(t *testing.T) {
	runTestsForAllStores(t, "PutAndGet", func(t *testing.T, store NoteStore) {
		note := &Note{Address: "0xDE0B295669a9FD93d5F28D9Ec85E40f4cb697BAe", Blob: []byte{1, 2, 3}, UpdatedAt: 1000}
		require.NoError(t, store.PutNote(note))
		assert.Equal(t, 1, note.Version)
		assert.Equal(t, addrA, note.Address, "address is stored lower-case")

		got, err := store.GetNote(addrA)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []byte{1, 2, 3}, got.Blob)
		assert.Equal(t, int64(1000), got.CreatedAt)
		assert.True(t, got.IsCurrent)
		assert.Nil(t, got.ValidTo)
	})
}

func TestGetMissing(t *testing.T) {
	runTestsForAllStores(t, "GetMissing", func(t *testing.T, store NoteStore) {
		got, err := store.GetNote(addrB)
		require.NoError(t, err)
		assert.Nil(t, got, "missing note is nil, not an error")
	})
}

func TestVersioning(t *testing.T) {
	runTestsForAllStores(t, "Versioning", func(t *testing.T, store NoteStore) {
		require.NoError(t, store.PutNote(&Note{Address: addrA, Blob: []byte("v1"), UpdatedAt: 100}))
		require.NoError(t, store.PutNote(&Note{Address: addrA, Blob: []byte("v2"), UpdatedAt: 200}))
		require.NoError(t, store.PutNote(&Note{Address: addrA, Blob: []byte("v3"), UpdatedAt: 300}))

		current, err := store.GetNote(addrA)
		require.NoError(t, err)
		assert.Equal(t, 3, current.Version)
		assert.Equal(t, []byte("v3"), current.Blob)
		assert.Equal(t, int64(100), current.CreatedAt, "creation time survives updates")

		versions, err := store.ListNoteVersions(addrA)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		assert.False(t, versions[0].IsCurrent)
		require.NotNil(t, versions[0].ValidTo)
		assert.Equal(t, int64(200), *versions[0].ValidTo)
		assert.True(t, versions[2].IsCurrent)

		count, err := store.CountNotes()
		require.NoError(t, err)
		assert.Equal(t, 1, count, "versions are not separate notes")
	})
}

func TestDeleteNote(t *testing.T) {
	runTestsForAllStores(t, "Delete", func(t *testing.T, store NoteStore) {
		require.NoError(t, store.PutNote(&Note{Address: addrA, Blob: []byte("x"), UpdatedAt: 1}))
		require.NoError(t, store.PutNote(&Note{Address: addrA, Blob: []byte("y"), UpdatedAt: 2}))
		require.NoError(t, store.DeleteNote(addrA))

		got, err := store.GetNote(addrA)
		require.NoError(t, err)
		assert.Nil(t, got)
		versions, err := store.ListNoteVersions(addrA)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})
}

func TestListNotes(t *testing.T) {
	runTestsForAllStores(t, "List", func(t *testing.T, store NoteStore) {
		require.NoError(t, store.PutNote(&Note{Address: addrA, Blob: []byte("a"), UpdatedAt: 1}))
		require.NoError(t, store.PutNote(&Note{Address: addrB, Blob: []byte("b"), UpdatedAt: 2}))
		require.NoError(t, store.PutNote(&Note{Address: addrB, Blob: []byte("b2"), UpdatedAt: 3}))

		notes, err := store.ListNotes()
		require.NoError(t, err)
		require.Len(t, notes, 2)
		// ordered by address
		assert.Equal(t, addrB, notes[0].Address)
		assert.Equal(t, []byte("b2"), notes[0].Blob)
		assert.Equal(t, addrA, notes[1].Address)
	})
}
