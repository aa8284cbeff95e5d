// Package bundler assembles collected owner signatures into the single
// byte string the ledger verifies.
//
// The ledger recovers signers in one forward pass and rejects any bundle
// whose signers are not strictly ascending, so ordering here is part of
// correctness, not presentation.
package bundler

import (
	"slices"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/ethereum/go-ethereum/common"
)

// Bundle deduplicates confirmations by owner (keeping the latest), sorts
// them by ascending owner address and concatenates the signatures.
//
// Fewer than threshold distinct owners is a caller bug and fails with
// ErrThresholdNotMet.
func Bundle(confirmations []safetx.Confirmation, threshold int) ([]byte, error) {
	ordered, err := Order(confirmations, threshold)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(ordered)*safetx.SignatureLength)
	for _, c := range ordered {
		out = append(out, c.Signature...)
	}
	return out, nil
}

// Order returns the deduplicated confirmations in bundle order.
func Order(confirmations []safetx.Confirmation, threshold int) ([]safetx.Confirmation, error) {
	if threshold < 1 {
		return nil, apperr.ErrThresholdNotMet.Newf("threshold must be at least 1, got %d", threshold)
	}

	latest := make(map[common.Address]safetx.Confirmation, len(confirmations))
	for _, c := range confirmations {
		if address.IsWildcard(c.Owner) {
			return nil, apperr.ErrNotOwner.New("confirmation from the zero address")
		}
		if len(c.Signature) != safetx.SignatureLength {
			return nil, apperr.ErrHashMismatch.Newf("signature for %s must be %d bytes, got %d",
				c.Owner.Hex(), safetx.SignatureLength, len(c.Signature))
		}
		if prev, ok := latest[c.Owner]; ok && !c.SubmittedAt.After(prev.SubmittedAt) {
			continue
		}
		latest[c.Owner] = c
	}

	if len(latest) < threshold {
		return nil, apperr.ErrThresholdNotMet.Newf("%d of %d confirmations", len(latest), threshold)
	}

	ordered := make([]safetx.Confirmation, 0, len(latest))
	for _, c := range latest {
		ordered = append(ordered, c)
	}
	slices.SortFunc(ordered, func(a, b safetx.Confirmation) int {
		return address.Compare(a.Owner, b.Owner)
	})
	return ordered, nil
}
