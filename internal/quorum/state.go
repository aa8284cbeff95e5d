package quorum

import (
	"math/big"

	"github.com/AlexZinkM/joint-wallet/internal/address"

	"github.com/ethereum/go-ethereum/common"
)

// State is the lifecycle position of a pending transaction.
type State int

const (
	StateDraft State = iota
	StateProposed
	StateConfirming
	StateExecutable
	StateExecuted
	StateFailed
)

var stateNames = map[State]string{
	StateDraft:      "draft",
	StateProposed:   "proposed",
	StateConfirming: "confirming",
	StateExecutable: "executable",
	StateExecuted:   "executed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateExecuted || s == StateFailed
}

// AccountState is the ledger's current view of a shared account.
type AccountState struct {
	Owners    []common.Address
	Threshold int
	// Nonce is the next nonce the account will accept. nil when unknown.
	Nonce *big.Int
}

// IsOwner reports whether addr is a current owner.
func (a *AccountState) IsOwner(addr common.Address) bool {
	return address.Contains(a.Owners, addr)
}
