// Package crypto seals secrets (provider API keys, OAuth tokens) before they
// are written to the database. Ciphertexts are NaCl secretbox boxes prefixed
// with their random 24-byte nonce.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	// ErrNoKey is returned when the sealer was built from an empty secret.
	ErrNoKey = errors.New("crypto: encryption key not configured")
	// ErrOpen is returned for truncated, tampered or foreign ciphertexts.
	ErrOpen = errors.New("crypto: cannot open sealed value")
)

// Sealer encrypts and authenticates small values under one symmetric key.
type Sealer struct {
	key [32]byte
}

// NewSealer derives a 32-byte key from secret with HKDF-SHA256, so any
// sufficiently random string from ENCRYPTION_KEY can be used directly.
func NewSealer(secret string) (*Sealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoKey
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("llm-chat-backend/sealer/v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	return s, nil
}

// Seal returns nonce || secretbox(plaintext).
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrOpen
	}
	return out, nil
}

// SealString is Seal for string values.
func (s *Sealer) SealString(v string) ([]byte, error) { return s.Seal([]byte(v)) }

// OpenString is Open for string values.
func (s *Sealer) OpenString(sealed []byte) (string, error) {
	b, err := s.Open(sealed)
	return string(b), err
}

// Last4 returns the last four characters of a secret for display.
func Last4(secret string) string {
	r := []rune(strings.TrimSpace(secret))
	if len(r) <= 4 {
		return string(r)
	}
	return string(r[len(r)-4:])
}
