package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
)

// FSStore keeps the version history of each note in one JSON file on a
// hackpadfs.FS. The browser build uses it over IndexedDB, where SQLite is not
// available.
type FSStore struct {
	mu  sync.RWMutex
	fs  hackpadfs.FS
	dir string
}

// DefaultNotesDir is the directory FSStore writes to.
const DefaultNotesDir = "notes"

func NewFSStore(fs hackpadfs.FS, dir string) (*FSStore, error) {
	if dir == "" {
		dir = DefaultNotesDir
	}
	if err := hackpadfs.MkdirAll(fs, dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create notes dir: %w", err)
	}
	return &FSStore{fs: fs, dir: dir}, nil
}

func (s *FSStore) Close() error { return nil }

func (s *FSStore) file(address string) string {
	return path.Join(s.dir, address+".json")
}

func (s *FSStore) load(address string) ([]*Note, error) {
	data, err := hackpadfs.ReadFile(s.fs, s.file(address))
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var history []*Note
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("note %s: %w", address, err)
	}
	return history, nil
}

func (s *FSStore) PutNote(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note.Address = normalize(note.Address)
	history, err := s.load(note.Address)
	if err != nil {
		return err
	}
	data, err := json.Marshal(appendVersion(history, note))
	if err != nil {
		return err
	}
	return hackpadfs.WriteFullFile(s.fs, s.file(note.Address), data, 0o600)
}

func (s *FSStore) GetNote(address string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, err := s.load(normalize(address))
	if err != nil || len(history) == 0 {
		return nil, err
	}
	return history[len(history)-1], nil
}

func (s *FSStore) DeleteNote(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := hackpadfs.Remove(s.fs, s.file(normalize(address)))
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FSStore) addresses() ([]string, error) {
	entries, err := hackpadfs.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, ".json") {
			out = append(out, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *FSStore) ListNotes() ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs, err := s.addresses()
	if err != nil {
		return nil, err
	}
	var out []*Note
	for _, a := range addrs {
		history, err := s.load(a)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			out = append(out, history[len(history)-1])
		}
	}
	return out, nil
}

func (s *FSStore) ListNoteVersions(address string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(normalize(address))
}

func (s *FSStore) CountNotes() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs, err := s.addresses()
	return len(addrs), err
}
