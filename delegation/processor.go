// Package delegation processes inbound delegation webhooks.
//
// An event is verified against the shared secret, parsed, checked against
// the webhook ledger and only then decrypted, so a redelivered event never
// costs a private-key operation.
package delegation

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/crypto"
	"github.com/AlexZinkM/joint-wallet/internal/model"
	"github.com/AlexZinkM/joint-wallet/internal/webhookledger"

	"go.uber.org/zap"
)

// DelegateLookup resolves a delegate user id to an email address.
type DelegateLookup func(ctx context.Context, userID string) (string, error)

// Outcome describes what a delivery did.
type Outcome struct {
	EventID   string
	Processed bool
	Duplicate bool
	Record    *webhookledger.Record
}

// Processor turns verified delegation events into delegated access records.
type Processor struct {
	secret []byte
	key    *rsa.PrivateKey
	ledger *webhookledger.Ledger
	lookup DelegateLookup
	logger *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDelegateLookup fills DelegateEmail on new records. A lookup failure
// is logged and leaves the email empty.
func WithDelegateLookup(fn DelegateLookup) Option {
	return func(p *Processor) { p.lookup = fn }
}

// NewProcessor creates a Processor. key is the envelope private key; it is
// only read.
func NewProcessor(secret []byte, key *rsa.PrivateKey, ledger *webhookledger.Ledger, opts ...Option) (*Processor, error) {
	if len(secret) == 0 {
		return nil, errors.New("webhook secret is required")
	}
	if key == nil {
		return nil, errors.New("delegation private key is required")
	}
	p := &Processor{
		secret: append([]byte(nil), secret...),
		key:    key,
		ledger: ledger,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Handle processes one delivery. body is the raw request body and signature
// the SignatureHeader value.
func (p *Processor) Handle(ctx context.Context, body []byte, signature string) (*Outcome, error) {
	if err := VerifySignature(p.secret, body, signature); err != nil {
		p.logger.Warn("rejected unverified webhook", zap.Error(err))
		return nil, err
	}

	var event model.DelegationWebhook
	if err := decodeStrict(body, &event); err != nil {
		return nil, apperr.ErrInvalidInput.Newf("webhook: %v", err)
	}
	if err := event.Validate(); err != nil {
		return nil, apperr.ErrInvalidInput.New(err.Error())
	}

	log := p.logger.With(
		zap.String("event_id", event.EventID),
		zap.String("event_name", event.EventName),
		zap.String("message_id", event.MessageID))

	if event.EventName != model.EventDelegationCreated {
		log.Info("ignoring webhook event")
		return &Outcome{EventID: event.EventID}, nil
	}

	var data model.DelegationCreatedData
	if err := decodeStrict(event.Data, &data); err != nil {
		return nil, apperr.ErrInvalidInput.Newf("webhook data: %v", err)
	}
	if err := data.Validate(); err != nil {
		return nil, apperr.ErrInvalidInput.New(err.Error())
	}
	publicKey, err := NormalizePublicKey(data.Chain, data.PublicKey)
	if err != nil {
		return nil, err
	}

	var shareEnv, apiKeyEnv crypto.Envelope
	if err := json.Unmarshal(data.EncryptedDelegatedShare, &shareEnv); err != nil {
		return nil, fmt.Errorf("encryptedDelegatedShare: %w", err)
	}
	if err := json.Unmarshal(data.EncryptedWalletAPIKey, &apiKeyEnv); err != nil {
		return nil, fmt.Errorf("encryptedWalletApiKey: %w", err)
	}

	rec, created, err := p.ledger.MaterializeFunc(ctx, event.EventID, func(ctx context.Context) (*webhookledger.Materials, error) {
		share, err := crypto.DecryptJSON(p.key, &shareEnv)
		if err != nil {
			return nil, fmt.Errorf("encryptedDelegatedShare: %w", err)
		}
		apiKey, err := crypto.DecryptString(p.key, &apiKeyEnv)
		if err != nil {
			clear(share)
			return nil, fmt.Errorf("encryptedWalletApiKey: %w", err)
		}
		return &webhookledger.Materials{
			WalletID:       data.WalletID,
			Chain:          data.Chain,
			OwnerUserID:    event.UserID,
			DelegateUserID: data.UserID,
			DelegateEmail:  p.delegateEmail(ctx, data.UserID),
			PublicKey:      publicKey,
			Share:          share,
			APIKey:         apiKey,
		}, nil
	})
	if err != nil {
		log.Warn("delegation event not materialized", zap.Error(err))
		return nil, err
	}

	return &Outcome{
		EventID:   event.EventID,
		Processed: created,
		Duplicate: !created,
		Record:    rec,
	}, nil
}

func (p *Processor) delegateEmail(ctx context.Context, userID string) string {
	if p.lookup == nil {
		return ""
	}
	email, err := p.lookup(ctx, userID)
	if err != nil {
		p.logger.Warn("delegate lookup failed", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return email
}

func decodeStrict(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
