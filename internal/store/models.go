// Package store persists encrypted notes keyed by lower-case address.
// Note bodies are opaque ciphertext; the store never sees plaintext.
package store

// Note is one version of the encrypted note for an address.
// Uses the temporal table pattern: every write adds a version and closes the
// previous one.
type Note struct {
	Address   string `json:"address"`
	Version   int    `json:"version"`
	Blob      []byte `json:"blob"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`

	ValidFrom int64  `json:"validFrom"`
	ValidTo   *int64 `json:"validTo,omitempty"`
	IsCurrent bool   `json:"isCurrent"`
}

// NoteStore defines the interface for note persistence.
// This allows swapping between MemStore (testing) and SQLiteStore (production).
type NoteStore interface {
	// PutNote writes a new current version. UpdatedAt must be set; Version,
	// CreatedAt and the temporal fields are assigned by the store.
	PutNote(note *Note) error
	// GetNote returns the current version, or nil when there is none.
	GetNote(address string) (*Note, error)
	// DeleteNote drops every version of the note.
	DeleteNote(address string) error
	// ListNotes returns the current version of every note, by address.
	ListNotes() ([]*Note, error)
	// ListNoteVersions returns every version of a note, oldest first.
	ListNoteVersions(address string) ([]*Note, error)
	CountNotes() (int, error)

	Close() error
}
