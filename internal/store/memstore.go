package store

import (
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of NoteStore for testing.
type MemStore struct {
	mu       sync.RWMutex
	versions map[string][]*Note
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{versions: make(map[string][]*Note)}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

func (s *MemStore) PutNote(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note.Address = normalize(note.Address)
	s.versions[note.Address] = appendVersion(s.versions[note.Address], note)
	return nil
}

// appendVersion closes the current version of history, if any, stamps note as
// the next one and appends a copy of it.
func appendVersion(history []*Note, note *Note) []*Note {
	note.CreatedAt = note.UpdatedAt
	note.Version = 1
	if n := len(history); n > 0 {
		current := history[n-1]
		closedAt := note.UpdatedAt
		current.ValidTo = &closedAt
		current.IsCurrent = false
		note.CreatedAt = current.CreatedAt
		note.Version = current.Version + 1
	}
	note.ValidFrom = note.UpdatedAt
	note.ValidTo = nil
	note.IsCurrent = true
	return append(history, copyNote(note))
}

func (s *MemStore) GetNote(address string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.versions[normalize(address)]
	if len(history) == 0 {
		return nil, nil
	}
	return copyNote(history[len(history)-1]), nil
}

func (s *MemStore) DeleteNote(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.versions, normalize(address))
	return nil
}

func (s *MemStore) ListNotes() ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Note
	for _, history := range s.versions {
		out = append(out, copyNote(history[len(history)-1]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *MemStore) ListNoteVersions(address string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Note
	for _, n := range s.versions[normalize(address)] {
		out = append(out, copyNote(n))
	}
	return out, nil
}

func (s *MemStore) CountNotes() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.versions), nil
}

func copyNote(n *Note) *Note {
	c := *n
	c.Blob = append([]byte(nil), n.Blob...)
	if n.ValidTo != nil {
		v := *n.ValidTo
		c.ValidTo = &v
	}
	return &c
}
