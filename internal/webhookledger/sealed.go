package webhookledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/crypto"
)

// sealedRecord is the persisted form of a Record. Decrypted material is
// sealed at rest.
type sealedRecord struct {
	ID             string    `json:"id"`
	EventID        string    `json:"eventId"`
	WalletID       string    `json:"walletId"`
	Chain          string    `json:"chain"`
	OwnerUserID    string    `json:"ownerUserId"`
	DelegateUserID string    `json:"delegateUserId"`
	DelegateEmail  string    `json:"delegateEmail,omitempty"`
	PublicKey      string    `json:"publicKey"`
	ShareSealed    string    `json:"shareSealed"`
	APIKeySealed   string    `json:"apiKeySealed"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func seal(s *crypto.Sealer, rec *Record) (*sealedRecord, error) {
	share, err := s.Seal(rec.DecryptedShare)
	if err != nil {
		return nil, fmt.Errorf("failed to seal share: %w", err)
	}
	apiKey, err := s.Seal([]byte(rec.DecryptedAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to seal api key: %w", err)
	}
	return &sealedRecord{
		ID:             rec.ID,
		EventID:        rec.EventID,
		WalletID:       rec.WalletID,
		Chain:          rec.Chain,
		OwnerUserID:    rec.OwnerUserID,
		DelegateUserID: rec.DelegateUserID,
		DelegateEmail:  rec.DelegateEmail,
		PublicKey:      rec.PublicKey,
		ShareSealed:    share,
		APIKeySealed:   apiKey,
		Status:         rec.Status,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

func unseal(s *crypto.Sealer, sr *sealedRecord) (*Record, error) {
	share, err := s.Open(sr.ShareSealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open share: %w", err)
	}
	apiKey, err := s.Open(sr.APIKeySealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open api key: %w", err)
	}
	defer clear(apiKey)
	return &Record{
		ID:              sr.ID,
		EventID:         sr.EventID,
		WalletID:        sr.WalletID,
		Chain:           sr.Chain,
		OwnerUserID:     sr.OwnerUserID,
		DelegateUserID:  sr.DelegateUserID,
		DelegateEmail:   sr.DelegateEmail,
		PublicKey:       sr.PublicKey,
		DecryptedShare:  json.RawMessage(share),
		DecryptedAPIKey: string(apiKey),
		Status:          sr.Status,
		CreatedAt:       sr.CreatedAt,
	}, nil
}
