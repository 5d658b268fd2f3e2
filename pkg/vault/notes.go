package vault

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arshiaxbt/Aura/internal/store"
)

// Notes reads and writes encrypted notes with the current session key.
type Notes struct {
	store   store.NoteStore
	session *Manager
	now     func() time.Time
}

func NewNotes(st store.NoteStore, session *Manager) *Notes {
	return &Notes{store: st, session: session, now: time.Now}
}

// Get decrypts the note for address. It returns ErrNoNote when there is none,
// ErrLocked without a session and ErrWrongPassword when the note was sealed
// under a different password.
func (n *Notes) Get(address string) (string, error) {
	key, ok := n.session.CurrentKey()
	if !ok {
		return "", ErrLocked
	}
	note, err := n.store.GetNote(address)
	if err != nil {
		return "", fmt.Errorf("load note: %w", err)
	}
	if note == nil {
		return "", ErrNoNote
	}
	var b Blob
	if err := json.Unmarshal(note.Blob, &b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return Decrypt(b, key)
}

// Set seals text for address. Blank text deletes the note.
func (n *Notes) Set(address, text string) error {
	key, ok := n.session.CurrentKey()
	if !ok {
		return ErrLocked
	}
	if strings.TrimSpace(text) == "" {
		return n.store.DeleteNote(address)
	}
	b, err := Encrypt(text, key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return n.store.PutNote(&store.Note{Address: address, Blob: data, UpdatedAt: n.now().UnixMilli()})
}

// Delete drops the note for address. It needs an unlocked session.
func (n *Notes) Delete(address string) error {
	if !n.session.IsUnlocked() {
		return ErrLocked
	}
	return n.store.DeleteNote(address)
}

// Addresses lists the addresses that have a note. No session is needed.
func (n *Notes) Addresses() ([]string, error) {
	notes, err := n.store.ListNotes()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(notes))
	for i, note := range notes {
		out[i] = note.Address
	}
	return out, nil
}

// Revision is one decrypted version of a note.
type Revision struct {
	Version   int
	Text      string
	UpdatedAt time.Time
	Current   bool
}

// History decrypts every version of the note for address, oldest first.
func (n *Notes) History(address string) ([]Revision, error) {
	key, ok := n.session.CurrentKey()
	if !ok {
		return nil, ErrLocked
	}
	versions, err := n.store.ListNoteVersions(address)
	if err != nil {
		return nil, err
	}
	out := make([]Revision, 0, len(versions))
	for _, v := range versions {
		var b Blob
		if err := json.Unmarshal(v.Blob, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		text, err := Decrypt(b, key)
		if err != nil {
			return nil, err
		}
		out = append(out, Revision{
			Version:   v.Version,
			Text:      text,
			UpdatedAt: time.UnixMilli(v.UpdatedAt),
			Current:   v.IsCurrent,
		})
	}
	return out, nil
}
