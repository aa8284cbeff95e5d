package safe

import (
	"math/big"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/common"
	"github.com/AlexZinkM/joint-wallet/internal/model"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Proposal is a parsed propose request.
type Proposal struct {
	Tx        *safetx.Transaction
	Sender    ethcommon.Address
	Signature []byte
	Origin    string
}

// ParseProposal turns a propose request for account into a transaction
// with normalized addresses.
func ParseProposal(chainID *big.Int, account string, req *model.ProposeRequest) (*Proposal, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.ErrInvalidInput.New(err.Error())
	}

	acct, err := address.Normalize(account)
	if err != nil {
		return nil, err
	}
	to, err := address.Normalize(req.To)
	if err != nil {
		return nil, err
	}
	sender, err := address.ParseOwner(req.Sender)
	if err != nil {
		return nil, err
	}
	gasToken, err := optionalAddress(req.GasToken)
	if err != nil {
		return nil, err
	}
	refundReceiver, err := optionalAddress(req.RefundReceiver)
	if err != nil {
		return nil, err
	}

	ints := make(map[string]*big.Int, 5)
	for name, raw := range map[string]string{
		"value":     req.Value,
		"safeTxGas": req.SafeTxGas,
		"baseGas":   req.BaseGas,
		"gasPrice":  req.GasPrice,
		"nonce":     req.Nonce,
	} {
		if raw == "" {
			ints[name] = new(big.Int)
			continue
		}
		n, err := common.ParseUint256(raw)
		if err != nil {
			return nil, apperr.ErrInvalidInput.Newf("%s: %v", name, err)
		}
		ints[name] = n
	}

	if req.ValueEth != "" {
		wei, err := common.EtherToWei(req.ValueEth)
		if err != nil {
			return nil, apperr.ErrInvalidInput.Newf("valueEth: %v", err)
		}
		ints["value"] = wei
	}

	data, err := decodeHex("data", req.Data)
	if err != nil {
		return nil, err
	}
	sig, err := DecodeSignature(req.Signature)
	if err != nil {
		return nil, err
	}

	tx := &safetx.Transaction{
		ChainID:        new(big.Int).Set(chainID),
		Account:        acct,
		To:             to,
		Value:          ints["value"],
		Data:           data,
		Operation:      safetx.Operation(req.Operation),
		SafeTxGas:      ints["safeTxGas"],
		BaseGas:        ints["baseGas"],
		GasPrice:       ints["gasPrice"],
		GasToken:       gasToken,
		RefundReceiver: refundReceiver,
		Nonce:          ints["nonce"],
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return &Proposal{Tx: tx, Sender: sender, Signature: sig, Origin: req.Origin}, nil
}

// ParseHash parses a 0x-prefixed 32-byte identity hash.
func ParseHash(raw string) (ethcommon.Hash, error) {
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != ethcommon.HashLength {
		return ethcommon.Hash{}, apperr.ErrInvalidInput.Newf("%q is not a 32-byte hex hash", raw)
	}
	return ethcommon.BytesToHash(b), nil
}

// DecodeSignature decodes a 0x-prefixed 65-byte owner signature.
func DecodeSignature(raw string) ([]byte, error) {
	sig, err := decodeHex("signature", raw)
	if err != nil {
		return nil, err
	}
	if len(sig) != safetx.SignatureLength {
		return nil, apperr.ErrHashMismatch.Newf("signature is %d bytes, want %d", len(sig), safetx.SignatureLength)
	}
	return sig, nil
}

func decodeHex(field, raw string) ([]byte, error) {
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		return nil, apperr.ErrInvalidInput.Newf("%s: %v", field, err)
	}
	return b, nil
}

func optionalAddress(raw string) (ethcommon.Address, error) {
	if raw == "" {
		return address.Wildcard, nil
	}
	return address.Normalize(raw)
}
