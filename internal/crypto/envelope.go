package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
)

// AlgHybridRSAAES256 is the only accepted envelope algorithm: the content
// key is wrapped with RSA-OAEP-SHA256 and the payload sealed with
// AES-256-GCM.
const AlgHybridRSAAES256 = "HYBRID-RSA-AES-256"

const (
	contentKeyLen = 32
	ivLen         = 12
	tagLen        = 16
)

// Envelope is a hybrid-encrypted payload addressed to one RSA key. It is
// consumed once by Decrypt and never persisted in this form.
type Envelope struct {
	Algorithm  string
	IV         []byte
	Ciphertext []byte
	AuthTag    []byte
	WrappedKey []byte
	KeyID      string
}

type envelopeJSON struct {
	Alg string `json:"alg"`
	IV  string `json:"iv"`
	CT  string `json:"ct"`
	Tag string `json:"tag"`
	EK  string `json:"ek"`
	KID string `json:"kid,omitempty"`
}

// MarshalJSON encodes binary fields as unpadded base64url.
func (e Envelope) MarshalJSON() ([]byte, error) {
	enc := base64.RawURLEncoding
	return json.Marshal(envelopeJSON{
		Alg: e.Algorithm,
		IV:  enc.EncodeToString(e.IV),
		CT:  enc.EncodeToString(e.Ciphertext),
		Tag: enc.EncodeToString(e.AuthTag),
		EK:  enc.EncodeToString(e.WrappedKey),
		KID: e.KeyID,
	})
}

// UnmarshalJSON accepts the envelope object or the same object serialized
// into a JSON string. Unknown fields are rejected.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return apperr.ErrInvalidInput.Newf("envelope string: %v", err)
		}
		data = []byte(inner)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw envelopeJSON
	if err := dec.Decode(&raw); err != nil {
		return apperr.ErrInvalidInput.Newf("envelope: %v", err)
	}

	fields := []struct {
		name string
		in   string
		out  *[]byte
	}{
		{"iv", raw.IV, &e.IV},
		{"ct", raw.CT, &e.Ciphertext},
		{"tag", raw.Tag, &e.AuthTag},
		{"ek", raw.EK, &e.WrappedKey},
	}
	for _, f := range fields {
		if f.in == "" {
			return apperr.ErrInvalidInput.Newf("envelope field %q is required", f.name)
		}
		b, err := decodeBase64(f.in)
		if err != nil {
			return apperr.ErrInvalidInput.Newf("envelope field %q: %v", f.name, err)
		}
		*f.out = b
	}
	e.Algorithm = raw.Alg
	e.KeyID = raw.KID
	return nil
}

// decodeBase64 accepts base64url or standard base64, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return b, nil
}
