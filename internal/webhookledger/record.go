package webhookledger

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle of a delegated access grant.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Record is the materialized result of one delegation event. EventID is its
// unique key.
type Record struct {
	ID              string          `json:"id"`
	EventID         string          `json:"eventId"`
	WalletID        string          `json:"walletId"`
	Chain           string          `json:"chain"`
	OwnerUserID     string          `json:"ownerUserId"`
	DelegateUserID  string          `json:"delegateUserId"`
	DelegateEmail   string          `json:"delegateEmail,omitempty"`
	PublicKey       string          `json:"publicKey"`
	DecryptedShare  json.RawMessage `json:"-"`
	DecryptedAPIKey string          `json:"-"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Materials are the decrypted inputs of a record.
type Materials struct {
	WalletID       string
	Chain          string
	OwnerUserID    string
	DelegateUserID string
	DelegateEmail  string
	PublicKey      string
	Share          json.RawMessage
	APIKey         string
}

func (r *Record) clone() *Record {
	c := *r
	c.DecryptedShare = append(json.RawMessage(nil), r.DecryptedShare...)
	return &c
}
