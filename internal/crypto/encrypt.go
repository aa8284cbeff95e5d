// Package crypto decrypts delegated credential envelopes and seals
// delegated material at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// ScryptParams controls the at-rest key derivation cost.
type ScryptParams struct {
	N int
	R int
	P int
}

// DefaultScryptParams follows the local wallet file parameters.
//
// N=2^18 (~256MB RAM, 0.5-2s). The key is derived once per process, so the
// cost is paid at startup only.
var DefaultScryptParams = ScryptParams{N: 1 << 18, R: 8, P: 1}

const (
	scryptKeyLen = 32
	// SaltLen is the size of the at-rest key derivation salt.
	SaltLen = 32
)

// Encrypt builds an envelope for pub. Producers of delegated material do
// this on their side; the service uses it for fixtures and tooling.
func Encrypt(pub *rsa.PublicKey, plaintext []byte, keyID string) (*Envelope, error) {
	contentKey := make([]byte, contentKeyLen)
	if _, err := io.ReadFull(rand.Reader, contentKey); err != nil {
		return nil, fmt.Errorf("failed to generate content key: %w", err)
	}
	defer clear(contentKey)

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := aesGCM.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - tagLen

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, contentKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap content key: %w", err)
	}

	return &Envelope{
		Algorithm:  AlgHybridRSAAES256,
		IV:         iv,
		Ciphertext: sealed[:split],
		AuthTag:    sealed[split:],
		WrappedKey: wrapped,
		KeyID:      keyID,
	}, nil
}

// Sealer encrypts values at rest with AES-256-GCM under a key derived from
// a passphrase.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the storage key. passphrase is not retained; the caller
// should zero it after use.
func NewSealer(passphrase, salt []byte, params ScryptParams) (*Sealer, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("store passphrase is empty")
	}
	if len(salt) < 16 {
		return nil, fmt.Errorf("salt must be at least 16 bytes")
	}

	key, err := scrypt.Key(passphrase, salt, params.N, params.R, params.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: aesGCM}, nil
}

// NewSalt returns a random salt for NewSealer.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Seal encrypts plaintext with a fresh nonce and returns base64(nonce||ct).
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}
