// Package webhookledger materializes delegation events into delegated
// access records at most once per event id.
//
// Redelivered events return the stored record without running the decrypt
// step again. Stores implement an atomic insert-if-absent so concurrent
// deliveries across processes still resolve to a single record.
package webhookledger

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Store.Get for unknown event ids.
var ErrNotFound = errors.New("delegation record not found")

const lockStripes = 64

// Store persists records keyed by event id.
type Store interface {
	// Get returns the record for eventID or ErrNotFound.
	Get(ctx context.Context, eventID string) (*Record, error)
	// InsertIfAbsent stores rec unless a record with the same event id
	// exists. It returns the stored record and whether rec was inserted.
	InsertIfAbsent(ctx context.Context, rec *Record) (*Record, bool, error)
}

// ProduceFunc decrypts the materials of an event. It runs only when no
// record exists yet.
type ProduceFunc func(ctx context.Context) (*Materials, error)

// Ledger guards record creation.
type Ledger struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	// stripes serialize same-key deliveries inside one process so the
	// produce step runs once; the store's insert decides across processes.
	stripes [lockStripes]sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(led *Ledger) {
		if l != nil {
			led.logger = l
		}
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(led *Ledger) { led.now = now }
}

// New creates a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Materialize stores m under eventID unless a record already exists.
func (l *Ledger) Materialize(ctx context.Context, eventID string, m Materials) (*Record, bool, error) {
	return l.MaterializeFunc(ctx, eventID, func(context.Context) (*Materials, error) {
		return &m, nil
	})
}

// MaterializeFunc returns the existing record for eventID, or runs produce
// and stores its result. The bool reports whether this call created the
// record. A produce failure stores nothing.
func (l *Ledger) MaterializeFunc(ctx context.Context, eventID string, produce ProduceFunc) (*Record, bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, false, apperr.ErrInvalidInput.New("eventId is required")
	}

	if rec, err := l.existing(ctx, eventID); err != nil || rec != nil {
		return rec, false, err
	}

	mu := &l.stripes[stripe(eventID)]
	mu.Lock()
	defer mu.Unlock()

	if rec, err := l.existing(ctx, eventID); err != nil || rec != nil {
		return rec, false, err
	}

	m, err := produce(ctx)
	if err != nil {
		return nil, false, err
	}

	rec := &Record{
		ID:              uuid.NewString(),
		EventID:         eventID,
		WalletID:        m.WalletID,
		Chain:           m.Chain,
		OwnerUserID:     m.OwnerUserID,
		DelegateUserID:  m.DelegateUserID,
		DelegateEmail:   m.DelegateEmail,
		PublicKey:       m.PublicKey,
		DecryptedShare:  m.Share,
		DecryptedAPIKey: m.APIKey,
		Status:          StatusActive,
		CreatedAt:       l.now().UTC(),
	}

	stored, inserted, err := l.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		l.logger.Info("delegation event materialized elsewhere",
			zap.String("event_id", eventID),
			zap.NamedError("outcome", apperr.ErrDuplicateWebhookEvent))
		return stored, false, nil
	}

	l.logger.Info("delegation record materialized",
		zap.String("event_id", eventID),
		zap.String("record_id", stored.ID),
		zap.String("wallet_id", stored.WalletID))
	return stored, true, nil
}

// Get returns the record for eventID or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, eventID string) (*Record, error) {
	return l.store.Get(ctx, eventID)
}

func (l *Ledger) existing(ctx context.Context, eventID string) (*Record, error) {
	rec, err := l.store.Get(ctx, eventID)
	switch {
	case err == nil:
		l.logger.Info("duplicate delegation event",
			zap.String("event_id", eventID),
			zap.NamedError("outcome", apperr.ErrDuplicateWebhookEvent))
		return rec, nil
	case errors.Is(err, ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

func stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
