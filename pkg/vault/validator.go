package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/hack-pad/hackpadfs"
)

// validatorPlaintext is sealed under the vault password; opening it proves
// the password without storing it.
const validatorPlaintext = "aura-vault-validator-v1"

// Validator proves knowledge of the vault password.
type Validator struct {
	Blob Blob `json:"blob"`
}

// CreateValidator seals the validator plaintext under password.
func CreateValidator(password string) (Validator, error) {
	if password == "" {
		return Validator{}, ErrEmptyPassword
	}
	b, err := Encrypt(validatorPlaintext, password)
	if err != nil {
		return Validator{}, err
	}
	return Validator{Blob: b}, nil
}

// Verify reports whether password is exactly the one v was created with.
func Verify(v Validator, password string) bool {
	if password == "" {
		return false
	}
	pt, err := Decrypt(v.Blob, password)
	return err == nil && pt == validatorPlaintext
}

// ValidatorStore persists the single vault validator.
type ValidatorStore interface {
	// Load returns ok == false when no vault has been set up.
	Load() (v Validator, ok bool, err error)
	Save(v Validator) error
	Delete() error
}

// DefaultValidatorPath is where FileValidatorStore keeps the validator.
const DefaultValidatorPath = "vault/validator.json"

// FileValidatorStore keeps the validator in a file on a hackpadfs.FS:
// IndexedDB in the browser, the OS file system in the CLI, memory in tests.
type FileValidatorStore struct {
	FS   hackpadfs.FS
	Path string
}

func NewFileValidatorStore(fs hackpadfs.FS) *FileValidatorStore {
	return &FileValidatorStore{FS: fs, Path: DefaultValidatorPath}
}

func (s *FileValidatorStore) Load() (Validator, bool, error) {
	data, err := hackpadfs.ReadFile(s.FS, s.Path)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return Validator{}, false, nil
	}
	if err != nil {
		return Validator{}, false, fmt.Errorf("read validator: %w", err)
	}
	var v Validator
	if err := json.Unmarshal(data, &v); err != nil {
		return Validator{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, true, nil
}

func (s *FileValidatorStore) Save(v Validator) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if dir := path.Dir(s.Path); dir != "." {
		if err := hackpadfs.MkdirAll(s.FS, dir, 0o700); err != nil {
			return fmt.Errorf("create vault dir: %w", err)
		}
	}
	if err := hackpadfs.WriteFullFile(s.FS, s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write validator: %w", err)
	}
	return nil
}

func (s *FileValidatorStore) Delete() error {
	err := hackpadfs.Remove(s.FS, s.Path)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return nil
	}
	return err
}
