// Package secrets is a small file-backed credential store: file passwords
// keyed by name, sealed with AES-GCM under a key derived from a caller
// supplied passphrase. It exists so batch workflows never put passwords in
// argv or plaintext config.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"

	"github.com/mnybridge/mnybridge/internal/errors"
)

// Store reads and writes one sealed secrets file.
type Store struct {
	path string
	aead cipher.AEAD
}

// Open derives the sealing key from the passphrase and loads the store at
// path. A missing file is an empty store.
func Open(path string, passphrase []byte) (*Store, error) {
	key := sha256.Sum256(passphrase)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.NewInternalError("create cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.NewInternalError("create AEAD", err)
	}
	return &Store{path: path, aead: aead}, nil
}

// Get returns the secret stored under name; ok is false when absent.
func (s *Store) Get(name string) (secret string, ok bool, err error) {
	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	secret, ok = m[name]
	return secret, ok, nil
}

// Set stores the secret under name, replacing any previous value.
func (s *Store) Set(name, secret string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	m[name] = secret
	return s.save(m)
}

// Clear removes the secret under name. Clearing an absent name is a no-op.
func (s *Store) Clear(name string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[name]; !ok {
		return nil
	}
	delete(m, name)
	return s.save(m)
}

func (s *Store) load() (map[string]string, error) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.NewStorageError(errors.CodeFetchFailed, "read secrets file", err)
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil, errors.NewInvalidFormat("secrets file shorter than its nonce")
	}
	nonce, box := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, errors.NewBadPassword("secrets file does not open with this passphrase")
	}
	var m map[string]string
	if err := json.Unmarshal(plain, &m); err != nil {
		return nil, errors.NewInvalidFormat("secrets file holds malformed content")
	}
	return m, nil
}

func (s *Store) save(m map[string]string) error {
	plain, err := json.Marshal(m)
	if err != nil {
		return errors.NewInternalError("marshal secrets", err)
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.NewInternalError("draw nonce", err)
	}
	sealed := append(nonce, s.aead.Seal(nil, nonce, plain, nil)...)
	if err := os.WriteFile(s.path, sealed, 0o600); err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "write secrets file", err)
	}
	return nil
}
