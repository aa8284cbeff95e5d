package delegation

import (
	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
)

// NormalizePublicKey validates a delegated wallet's public key for its
// chain and returns its canonical spelling.
func NormalizePublicKey(chain, key string) (string, error) {
	switch chain {
	case model.ChainEVM:
		addr, err := address.Normalize(key)
		if err != nil {
			return "", err
		}
		if address.IsWildcard(addr) {
			return "", apperr.ErrInvalidAddress.New("delegated wallet cannot be the zero address")
		}
		return address.String(addr), nil
	case model.ChainSOL:
		pk, err := solana.PublicKeyFromBase58(key)
		if err != nil {
			return "", apperr.ErrInvalidAddress.Newf("invalid Solana public key: %v", err)
		}
		return pk.String(), nil
	default:
		return "", apperr.ErrInvalidInput.Newf("unsupported chain %q", chain)
	}
}
