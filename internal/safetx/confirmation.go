package safetx

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Confirmation is one owner's signature over a transaction's identity hash.
type Confirmation struct {
	Owner       common.Address
	Signature   []byte
	SubmittedAt time.Time
}
