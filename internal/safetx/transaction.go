// Package safetx computes the identity hash of a shared-account transaction
// and recovers owner identities from signatures over it.
package safetx

import (
	"fmt"
	"math/big"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Operation is the kind of call the account performs.
type Operation uint8

const (
	OperationCall         Operation = 0
	OperationDelegateCall Operation = 1
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	txTypeHash     = crypto.Keccak256Hash([]byte(
		"SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas," +
			"uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Transaction is a pending operation on a shared account. Its fields are
// fixed once created; Hash is recomputed from them on every call.
type Transaction struct {
	ChainID        *big.Int
	Account        common.Address
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

// Validate checks that every numeric field fits a uint256 and the
// operation kind is known.
func (tx *Transaction) Validate() error {
	if tx == nil {
		return apperr.ErrInvalidInput.New("transaction is nil")
	}
	if address.IsWildcard(tx.Account) {
		return apperr.ErrInvalidAddress.New("account address must not be zero")
	}
	if tx.Operation > OperationDelegateCall {
		return apperr.ErrInvalidInput.Newf("unknown operation %d", tx.Operation)
	}
	for name, v := range map[string]*big.Int{
		"chainId":   tx.ChainID,
		"value":     tx.Value,
		"safeTxGas": tx.SafeTxGas,
		"baseGas":   tx.BaseGas,
		"gasPrice":  tx.GasPrice,
		"nonce":     tx.Nonce,
	} {
		if v == nil {
			continue
		}
		if v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
			return apperr.ErrInvalidInput.Newf("%s out of uint256 range", name)
		}
	}
	if tx.ChainID == nil || tx.ChainID.Sign() == 0 {
		return apperr.ErrInvalidInput.New("chainId is required")
	}
	return nil
}

// Hash returns the identity hash. It is recomputed from the current field
// values on every call.
func (tx *Transaction) Hash() common.Hash {
	domain := crypto.Keccak256(
		domainTypeHash.Bytes(),
		word(tx.ChainID),
		common.LeftPadBytes(tx.Account.Bytes(), 32),
	)
	structHash := crypto.Keccak256(
		txTypeHash.Bytes(),
		common.LeftPadBytes(tx.To.Bytes(), 32),
		word(tx.Value),
		crypto.Keccak256(tx.Data),
		word(new(big.Int).SetUint64(uint64(tx.Operation))),
		word(tx.SafeTxGas),
		word(tx.BaseGas),
		word(tx.GasPrice),
		common.LeftPadBytes(tx.GasToken.Bytes(), 32),
		common.LeftPadBytes(tx.RefundReceiver.Bytes(), 32),
		word(tx.Nonce),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain, structHash)
}

// Clone returns a deep copy.
func (tx *Transaction) Clone() *Transaction {
	c := *tx
	c.ChainID = cloneInt(tx.ChainID)
	c.Value = cloneInt(tx.Value)
	c.SafeTxGas = cloneInt(tx.SafeTxGas)
	c.BaseGas = cloneInt(tx.BaseGas)
	c.GasPrice = cloneInt(tx.GasPrice)
	c.Nonce = cloneInt(tx.Nonce)
	c.Data = append([]byte(nil), tx.Data...)
	return &c
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("safetx{account=%s to=%s nonce=%s hash=%s}",
		address.String(tx.Account), address.String(tx.To), intString(tx.Nonce), tx.Hash().Hex())
}

// word left-pads a non-negative integer to a 32-byte ABI word. nil encodes
// as zero.
func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
