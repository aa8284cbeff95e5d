package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
)

// Decrypt unwraps the content key with RSA-OAEP-SHA256 and opens the payload
// with AES-256-GCM. No plaintext is returned unless the tag verifies.
func Decrypt(key *rsa.PrivateKey, env *Envelope) ([]byte, error) {
	if key == nil {
		return nil, apperr.ErrKeyUnwrapFailure.New("no private key loaded")
	}
	if env == nil {
		return nil, apperr.ErrInvalidInput.New("envelope is nil")
	}
	if env.Algorithm != AlgHybridRSAAES256 {
		return nil, apperr.ErrKeyUnwrapFailure.Newf("unsupported envelope algorithm %q", env.Algorithm)
	}

	// Stage 1: unwrap the content-encryption key
	contentKey, err := rsa.DecryptOAEP(sha256.New(), nil, key, env.WrappedKey, nil)
	if err != nil {
		return nil, apperr.ErrKeyUnwrapFailure.New("OAEP unwrap rejected")
	}
	defer clear(contentKey) // wipe content key from memory

	if len(contentKey) != contentKeyLen {
		return nil, apperr.ErrKeyUnwrapFailure.Newf("content key is %d bytes, want %d", len(contentKey), contentKeyLen)
	}

	// Stage 2: authenticated decryption of the payload
	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, apperr.ErrPayloadDecryptFailure.Newf("create cipher: %v", err)
	}
	if len(env.IV) == 0 {
		return nil, apperr.ErrPayloadDecryptFailure.New("missing iv")
	}
	aesGCM, err := cipher.NewGCMWithNonceSize(block, len(env.IV))
	if err != nil {
		return nil, apperr.ErrPayloadDecryptFailure.Newf("create GCM: %v", err)
	}
	if len(env.AuthTag) != aesGCM.Overhead() {
		return nil, apperr.ErrPayloadDecryptFailure.Newf("auth tag is %d bytes, want %d", len(env.AuthTag), aesGCM.Overhead())
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := aesGCM.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, apperr.ErrPayloadDecryptFailure.New("authentication tag mismatch")
	}
	return plaintext, nil
}

// DecryptJSON decrypts env and requires the plaintext to be a JSON document.
// The raw document is returned so callers keep its exact shape.
func DecryptJSON(key *rsa.PrivateKey, env *Envelope) (json.RawMessage, error) {
	plaintext, err := Decrypt(key, env)
	if err != nil {
		return nil, err
	}
	if !json.Valid(plaintext) {
		clear(plaintext)
		return nil, apperr.ErrPayloadDecryptFailure.New("plaintext is not a JSON document")
	}
	return json.RawMessage(plaintext), nil
}

// DecryptString decrypts env into an opaque credential string.
func DecryptString(key *rsa.PrivateKey, env *Envelope) (string, error) {
	plaintext, err := Decrypt(key, env)
	if err != nil {
		return "", err
	}
	defer clear(plaintext)
	if len(plaintext) == 0 {
		return "", apperr.ErrPayloadDecryptFailure.New("empty credential")
	}
	return string(plaintext), nil
}

// Open reverses Sealer.Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed value: %w", err)
	}
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("sealed value too short")
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, errors.New("invalid store passphrase or corrupted value")
	}
	return plaintext, nil
}
