package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Delegation webhook event names.
const (
	EventDelegationCreated = "wallet.delegation.created"
	EventDelegationRevoked = "wallet.delegation.revoked"
)

// Chains a delegated wallet can live on.
const (
	ChainEVM = "EVM"
	ChainSOL = "SOL"
)

// DelegationWebhook is the inbound delegation event.
type DelegationWebhook struct {
	MessageID     string          `json:"messageId"`
	EventID       string          `json:"eventId"`
	EventName     string          `json:"eventName"`
	Timestamp     time.Time       `json:"timestamp"`
	UserID        string          `json:"userId"`
	EnvironmentID string          `json:"environmentId"`
	Data          json.RawMessage `json:"data"`
}

// Validate validates the event envelope. Data is parsed separately since
// its shape depends on EventName.
func (w *DelegationWebhook) Validate() error {
	if w.EventID == "" {
		return fmt.Errorf("eventId is required")
	}
	if w.EventName == "" {
		return fmt.Errorf("eventName is required")
	}
	return nil
}

// DelegationCreatedData is the data of a wallet.delegation.created event.
// The encrypted fields stay raw here; they are decoded only after the
// event has passed the idempotency check.
type DelegationCreatedData struct {
	Chain                   string          `json:"chain"`
	EncryptedDelegatedShare json.RawMessage `json:"encryptedDelegatedShare"`
	EncryptedWalletAPIKey   json.RawMessage `json:"encryptedWalletApiKey"`
	PublicKey               string          `json:"publicKey"`
	UserID                  string          `json:"userId"`
	WalletID                string          `json:"walletId"`
}

// Validate validates required fields.
func (d *DelegationCreatedData) Validate() error {
	switch {
	case d.Chain == "":
		return fmt.Errorf("data.chain is required")
	case d.WalletID == "":
		return fmt.Errorf("data.walletId is required")
	case d.UserID == "":
		return fmt.Errorf("data.userId is required")
	case d.PublicKey == "":
		return fmt.Errorf("data.publicKey is required")
	case len(d.EncryptedDelegatedShare) == 0 || string(d.EncryptedDelegatedShare) == "null":
		return fmt.Errorf("data.encryptedDelegatedShare is required")
	case len(d.EncryptedWalletAPIKey) == 0 || string(d.EncryptedWalletAPIKey) == "null":
		return fmt.Errorf("data.encryptedWalletApiKey is required")
	}
	return nil
}

// WebhookResponse represents response for POST /webhooks/delegation
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	RecordID  string `json:"recordId,omitempty"`
}
