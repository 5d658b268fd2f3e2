// Package vault is the password-protected notes vault: the encryption
// boundary, the password validator, the unlocked session shared across page
// contexts, and the encrypted notes themselves.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrWrongPassword is returned when authenticated decryption fails. No
	// plaintext is ever returned alongside it.
	ErrWrongPassword = errors.New("wrong password")
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrCorrupt       = errors.New("malformed ciphertext")
	ErrNoVault       = errors.New("no vault set up")
	ErrVaultExists   = errors.New("vault already set up")
	ErrLocked        = errors.New("vault is locked")
	ErrNoNote        = errors.New("no note")
)

// Params are the Argon2id key-derivation parameters.
type Params struct {
	Time    uint32 `json:"t"`
	Memory  uint32 `json:"m"`
	Threads uint8  `json:"p"`
}

// DefaultParams follow the minimum Argon2id recommendation (19 MiB, t=2, p=1).
var DefaultParams = Params{Time: 2, Memory: 19 * 1024, Threads: 1}

const (
	blobVersion = 1
	saltSize    = 16
	keySize     = chacha20poly1305.KeySize
)

// Blob is a sealed plaintext: XChaCha20-Poly1305 under an Argon2id key.
type Blob struct {
	Version    int    `json:"v"`
	KDF        Params `json:"kdf"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ct"`
}

func deriveKey(password string, salt []byte, p Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, keySize)
}

// Encrypt seals plaintext under password.
func Encrypt(plaintext, password string) (Blob, error) {
	return encryptWith(plaintext, password, DefaultParams)
}

func encryptWith(plaintext, password string, p Params) (Blob, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return Blob{}, fmt.Errorf("salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt, p))
	if err != nil {
		return Blob{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Blob{}, fmt.Errorf("nonce: %w", err)
	}
	return Blob{
		Version:    blobVersion,
		KDF:        p,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, []byte(plaintext), nil),
	}, nil
}

// Decrypt opens a Blob. Any authentication failure is ErrWrongPassword.
func Decrypt(b Blob, password string) (string, error) {
	if b.Version != blobVersion || len(b.Salt) != saltSize || len(b.Nonce) != chacha20poly1305.NonceSizeX || b.KDF.Time == 0 || b.KDF.Threads == 0 {
		return "", ErrCorrupt
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, b.Salt, b.KDF))
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, b.Nonce, b.Ciphertext, nil)
	if err != nil {
		return "", ErrWrongPassword
	}
	return string(pt), nil
}
