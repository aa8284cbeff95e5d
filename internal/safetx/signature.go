package safetx

import (
	"crypto/ecdsa"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an r||s||v owner signature.
const SignatureLength = crypto.SignatureLength

// Recover returns the owner that produced sig over hash.
//
// v in {27, 28} signs the hash directly. v in {31, 32} signs the
// personal-message digest of the hash. Any other v is rejected.
func Recover(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, apperr.ErrHashMismatch.Newf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	digest := hash.Bytes()
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)

	switch v := sig[64]; {
	case v == 27 || v == 28:
		normalized[64] = v - 27
	case v == 31 || v == 32:
		normalized[64] = v - 31
		digest = accounts.TextHash(hash.Bytes())
	default:
		return common.Address{}, apperr.ErrHashMismatch.Newf("unsupported signature type v=%d", v)
	}

	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, apperr.ErrHashMismatch.Newf("recover signer: %v", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify checks that sig over hash recovers to owner.
func Verify(hash common.Hash, owner common.Address, sig []byte) error {
	signer, err := Recover(hash, sig)
	if err != nil {
		return err
	}
	if signer != owner {
		return apperr.ErrHashMismatch.Newf("signature recovers to %s, not %s", signer.Hex(), owner.Hex())
	}
	return nil
}

// Sign produces a v in {27, 28} signature over hash. Owners sign with
// their own tooling; the service uses this only for fixtures.
func Sign(hash common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
