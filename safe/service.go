// Package safe runs the quorum protocol against the transaction relay.
//
// The relay is the shared store every owner reads; the coordinator is this
// process's view of it. Writes go to the relay first (as the coordinator's
// publish step) and reads refresh the coordinator from the relay, so a
// cached Executable flag is never trusted at execution time.
package safe

import (
	"context"

	"github.com/AlexZinkM/joint-wallet/internal/logging"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Relay is the transaction relay. *client.RelayClient satisfies it.
type Relay interface {
	Propose(ctx context.Context, tx *safetx.Transaction, sender common.Address, sig []byte, origin string) error
	Confirm(ctx context.Context, hash common.Hash, sig []byte) error
	Pending(ctx context.Context, account common.Address) (int, []quorum.Observed, error)
	Transaction(ctx context.Context, hash common.Hash) (*quorum.Observed, error)
}

// Service combines the relay and the coordinator.
type Service struct {
	relay       Relay
	coordinator *quorum.Coordinator
	logger      *zap.Logger
}

// NewService creates a Service.
func NewService(relay Relay, coordinator *quorum.Coordinator, logger *zap.Logger) *Service {
	return &Service{relay: relay, coordinator: coordinator, logger: logging.OrNop(logger)}
}

// Propose validates the proposal locally, publishes it to the relay and
// records the proposer's confirmation.
func (s *Service) Propose(ctx context.Context, p *Proposal) (*quorum.Result, error) {
	return s.coordinator.Propose(ctx, p.Tx, p.Sender, p.Signature, func(ctx context.Context) error {
		return s.relay.Propose(ctx, p.Tx, p.Sender, p.Signature, p.Origin)
	})
}

// Confirm adds an owner's confirmation. A transaction this process has not
// seen is loaded from the relay first.
func (s *Service) Confirm(ctx context.Context, hash common.Hash, owner common.Address, sig []byte) (*quorum.Result, error) {
	if _, ok := s.coordinator.Get(hash); !ok {
		if _, err := s.Transaction(ctx, hash); err != nil {
			return nil, err
		}
	}
	return s.coordinator.Confirm(ctx, hash, owner, sig, func(ctx context.Context) error {
		return s.relay.Confirm(ctx, hash, sig)
	})
}

// Transaction fetches a transaction from the relay and syncs it into the
// coordinator.
func (s *Service) Transaction(ctx context.Context, hash common.Hash) (*quorum.Result, error) {
	obs, err := s.relay.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	return s.coordinator.Sync(ctx, *obs)
}

// Pending lists the account's unexecuted transactions from the relay,
// syncing each into the coordinator. The count is the relay's total.
func (s *Service) Pending(ctx context.Context, account common.Address) (int, []quorum.Snapshot, error) {
	count, observed, err := s.relay.Pending(ctx, account)
	if err != nil {
		return 0, nil, err
	}

	out := make([]quorum.Snapshot, 0, len(observed))
	for _, obs := range observed {
		res, err := s.coordinator.Sync(ctx, obs)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, res.Snapshot)
	}
	return count, out, nil
}

// Execute re-reads the confirmation set from the relay and then executes.
func (s *Service) Execute(ctx context.Context, hash common.Hash) (*quorum.Snapshot, error) {
	res, err := s.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("executing transaction",
		zap.String("safe_tx_hash", hash.Hex()),
		zap.String("state", res.State.String()),
		zap.Int("confirmations", len(res.Confirmations)))
	return s.coordinator.Execute(ctx, hash)
}

// Get returns this process's cached view of a transaction.
func (s *Service) Get(hash common.Hash) (*quorum.Snapshot, bool) {
	return s.coordinator.Get(hash)
}
