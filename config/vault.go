package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"
)

// ErrAuth is returned when the secret blob cannot be decrypted. A wrong
// password and a corrupted file are deliberately indistinguishable.
var ErrAuth = errors.New("config: invalid password or corrupted secret store")

const (
	saltSize  = 16
	nonceSize = 12

	// argon2id parameters for the password-derived key.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keySize      = 32
)

// Store manages the encrypted configuration blob on disk.
//
// Blob layout: salt(16) || nonce(12) || ciphertext+tag. A fresh salt and
// nonce are generated on every save, and writes go through a temp file plus
// rename so a crash cannot leave a torn blob behind.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore creates a secret store rooted at path (the blob file itself).
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "secretstore").Logger(),
	}
}

// Path returns the blob file location.
func (s *Store) Path() string { return s.path }

// Exists reports whether a secret blob has been saved.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save encrypts cfg under password and atomically replaces the blob file.
func (s *Store) Save(cfg *AppConfig, password string) error {
	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("config: salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("config: nonce: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return err
	}

	blob := make([]byte, 0, saltSize+nonceSize+len(plaintext)+aead.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, nil)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: replace: %w", err)
	}

	s.log.Info().Msg("configuration saved")
	return nil
}

// Unlock reads and decrypts the blob. Any decryption failure, including a
// wrong password, truncated file, or flipped bit, surfaces as ErrAuth.
func (s *Store) Unlock(password string) (*AppConfig, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("config: read secret store: %w", err)
	}
	if len(blob) < saltSize+nonceSize+1 {
		return nil, ErrAuth
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuth
	}

	var cfg AppConfig
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return nil, ErrAuth
	}

	s.log.Info().Msg("configuration unlocked")
	return &cfg, nil
}

// Delete removes the blob file if present.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keySize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("config: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("config: gcm: %w", err)
	}
	return aead, nil
}
