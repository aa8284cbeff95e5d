// Package quorum implements the propose -> confirm -> execute state machine
// for transactions on a shared account.
//
// Owner sets and thresholds are read from the ledger at the moment each
// operation is validated, never frozen at proposal time. All mutations of a
// transaction happen under its entry lock, so exactly one confirmation can
// move it to Executable and that transition is reported once.
package quorum

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/bundler"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// AccountReader reads the current owner set and threshold of an account.
type AccountReader interface {
	AccountState(ctx context.Context, account common.Address) (*AccountState, error)
}

// Submitter hands an assembled bundle to the ledger. It returns an
// execution id on acceptance and an error matching apperr.ErrLedgerRejected
// on rejection. Any other error means the bundle may not have been accepted.
type Submitter interface {
	Submit(ctx context.Context, tx *safetx.Transaction, signatures []byte) (string, error)
}

// PublishFunc forwards a validated confirmation to an external store (the
// relay) before it is committed locally. A failure aborts the operation
// with no local change.
type PublishFunc func(ctx context.Context) error

// Snapshot is a point-in-time copy of a transaction's quorum state.
type Snapshot struct {
	Hash          common.Hash
	Tx            *safetx.Transaction
	State         State
	Confirmations []safetx.Confirmation
	Threshold     int
	ExecutionID   string
	Failure       string
}

// Result is returned by Propose and Confirm.
type Result struct {
	Snapshot
	// BecameExecutable is true for exactly one operation per transaction:
	// the one that first reached the threshold.
	BecameExecutable bool
}

// Observed is the relay's authoritative view of a transaction.
type Observed struct {
	Tx            *safetx.Transaction
	Confirmations []safetx.Confirmation
	Executed      bool
	ExecutionID   string
}

// Coordinator owns the quorum state of every known transaction.
type Coordinator struct {
	accounts     AccountReader
	submitter    Submitter
	logger       *zap.Logger
	timeout      time.Duration
	now          func() time.Time
	onExecutable func(Snapshot)
	store        *store
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds every ledger read and submission.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock overrides the confirmation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithOnExecutable registers a hook called once per transaction, after the
// confirmation that reaches the threshold has been committed.
func WithOnExecutable(fn func(Snapshot)) Option {
	return func(c *Coordinator) { c.onExecutable = fn }
}

// New creates a Coordinator.
func New(accounts AccountReader, submitter Submitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		accounts:  accounts,
		submitter: submitter,
		logger:    zap.NewNop(),
		timeout:   defaultTimeout,
		now:       time.Now,
		store:     newStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Propose records a new transaction with the proposer's confirmation.
func (c *Coordinator) Propose(ctx context.Context, tx *safetx.Transaction, proposer common.Address, sig []byte, publish PublishFunc) (*Result, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if address.IsWildcard(proposer) {
		return nil, apperr.ErrNotOwner.New("the zero address cannot propose")
	}

	tx = tx.Clone()
	hash := tx.Hash()

	acct, err := c.readAccount(ctx, tx.Account)
	if err != nil {
		return nil, err
	}
	if !acct.IsOwner(proposer) {
		return nil, apperr.ErrNotOwner.Newf("%s is not an owner of %s", proposer.Hex(), tx.Account.Hex())
	}
	if err := safetx.Verify(hash, proposer, sig); err != nil {
		return nil, err
	}

	var e *entry
	for {
		var created bool
		e, created = c.store.getOrCreate(hash, tx)
		e.mu.Lock()
		if !e.removed {
			if !created && e.state == StateDraft {
				// another proposal of the same hash is still publishing
				e.mu.Unlock()
				return nil, apperr.ErrInvalidState.New("transaction proposal in progress")
			}
			break
		}
		e.mu.Unlock()
	}

	if e.state != StateDraft {
		// Already proposed: a second proposal of the same hash is a confirmation.
		res, err := c.addConfirmation(ctx, e, acct, proposer, sig, publish)
		e.mu.Unlock()
		c.notify(res)
		return res, err
	}

	if err := runPublish(ctx, publish); err != nil {
		c.store.remove(e)
		e.mu.Unlock()
		return nil, err
	}

	e.state = StateProposed
	e.confirmations[proposer] = safetx.Confirmation{Owner: proposer, Signature: clone(sig), SubmittedAt: c.now()}
	became := c.evaluate(e, acct)
	res := &Result{Snapshot: snapshot(e), BecameExecutable: became}
	e.mu.Unlock()

	c.logger.Info("transaction proposed",
		zap.String("safe_tx_hash", hash.Hex()),
		zap.String("account", tx.Account.Hex()),
		zap.String("proposer", proposer.Hex()),
		zap.String("state", res.State.String()))
	c.notify(res)
	return res, nil
}

// Confirm adds an owner's confirmation to a proposed transaction.
func (c *Coordinator) Confirm(ctx context.Context, hash common.Hash, owner common.Address, sig []byte, publish PublishFunc) (*Result, error) {
	if address.IsWildcard(owner) {
		return nil, apperr.ErrNotOwner.New("the zero address cannot confirm")
	}
	e, err := c.lockEntry(hash)
	if err != nil {
		return nil, err
	}

	if _, ok := e.confirmations[owner]; ok {
		e.mu.Unlock()
		return nil, apperr.ErrAlreadySigned.Newf("%s already confirmed %s", owner.Hex(), hash.Hex())
	}
	if err := checkOpen(e); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	acct, err := c.readAccount(ctx, e.tx.Account)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	res, err := c.addConfirmation(ctx, e, acct, owner, sig, publish)
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	c.notify(res)
	return res, nil
}

// addConfirmation validates and commits one confirmation. e.mu must be held.
func (c *Coordinator) addConfirmation(ctx context.Context, e *entry, acct *AccountState, owner common.Address, sig []byte, publish PublishFunc) (*Result, error) {
	if _, ok := e.confirmations[owner]; ok {
		return nil, apperr.ErrAlreadySigned.Newf("%s already confirmed %s", owner.Hex(), e.hash.Hex())
	}
	if err := checkOpen(e); err != nil {
		return nil, err
	}
	if !acct.IsOwner(owner) {
		return nil, apperr.ErrNotOwner.Newf("%s is not an owner of %s", owner.Hex(), e.tx.Account.Hex())
	}
	if err := safetx.Verify(e.hash, owner, sig); err != nil {
		return nil, err
	}
	if err := runPublish(ctx, publish); err != nil {
		return nil, err
	}

	e.confirmations[owner] = safetx.Confirmation{Owner: owner, Signature: clone(sig), SubmittedAt: c.now()}
	became := c.evaluate(e, acct)

	c.logger.Info("transaction confirmed",
		zap.String("safe_tx_hash", e.hash.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Int("confirmations", len(e.confirmations)),
		zap.Int("threshold", e.threshold),
		zap.String("state", e.state.String()))
	return &Result{Snapshot: snapshot(e), BecameExecutable: became}, nil
}

// Execute bundles the confirmations of an executable transaction and
// submits them to the ledger.
//
// A ledger rejection moves the transaction to Failed. A timeout or transport
// failure leaves it Executable; the bundle was not acknowledged, and the
// account nonce prevents a second acceptance on resubmission.
func (c *Coordinator) Execute(ctx context.Context, hash common.Hash) (*Snapshot, error) {
	e, err := c.lockEntry(hash)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	switch e.state {
	case StateExecuted:
		return nil, apperr.ErrAlreadyExecuted.Newf("%s was executed as %s", hash.Hex(), e.executionID)
	case StateFailed:
		return nil, apperr.ErrInvalidState.Newf("%s failed: %s", hash.Hex(), e.failure)
	}

	acct, err := c.readAccount(ctx, e.tx.Account)
	if err != nil {
		return nil, err
	}

	if acct.Nonce != nil && e.tx.Nonce != nil {
		switch e.tx.Nonce.Cmp(acct.Nonce) {
		case 1:
			return nil, apperr.ErrInvalidState.Newf("nonce %s is queued behind account nonce %s", e.tx.Nonce, acct.Nonce)
		case -1:
			e.state = StateFailed
			e.failure = "nonce " + e.tx.Nonce.String() + " already used"
			c.logger.Warn("transaction nonce consumed before execution",
				zap.String("safe_tx_hash", hash.Hex()),
				zap.String("nonce", e.tx.Nonce.String()),
				zap.String("account_nonce", acct.Nonce.String()))
			return nil, apperr.ErrLedgerRejected.New(e.failure)
		}
	}

	signatures, err := bundler.Bundle(ownerConfirmations(e, acct), acct.Threshold)
	if err != nil {
		return nil, err
	}

	submitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	executionID, err := c.submitter.Submit(submitCtx, e.tx, signatures)
	if err != nil {
		if errors.Is(err, apperr.ErrLedgerRejected) {
			e.state = StateFailed
			e.failure = err.Error()
			c.logger.Warn("ledger rejected transaction",
				zap.String("safe_tx_hash", hash.Hex()),
				zap.Error(err))
			return nil, err
		}
		c.logger.Warn("transaction submission not acknowledged",
			zap.String("safe_tx_hash", hash.Hex()),
			zap.Error(err))
		return nil, unavailable("ledger", err)
	}

	e.state = StateExecuted
	e.executionID = executionID
	e.threshold = acct.Threshold
	c.logger.Info("transaction executed",
		zap.String("safe_tx_hash", hash.Hex()),
		zap.String("execution_id", executionID))

	snap := snapshot(e)
	return &snap, nil
}

// Sync replaces the local confirmation set with the relay's view. Relay
// signatures are verified; ones that do not recover to their claimed owner
// are dropped.
func (c *Coordinator) Sync(ctx context.Context, obs Observed) (*Result, error) {
	if err := obs.Tx.Validate(); err != nil {
		return nil, err
	}
	tx := obs.Tx.Clone()
	hash := tx.Hash()

	confirmations := make(map[common.Address]safetx.Confirmation, len(obs.Confirmations))
	for _, conf := range obs.Confirmations {
		if err := safetx.Verify(hash, conf.Owner, conf.Signature); err != nil {
			c.logger.Warn("dropping relay confirmation",
				zap.String("safe_tx_hash", hash.Hex()),
				zap.String("owner", conf.Owner.Hex()),
				zap.Error(err))
			continue
		}
		if prev, ok := confirmations[conf.Owner]; ok && !conf.SubmittedAt.After(prev.SubmittedAt) {
			continue
		}
		conf.Signature = clone(conf.Signature)
		confirmations[conf.Owner] = conf
	}

	var acct *AccountState
	if !obs.Executed {
		var err error
		if acct, err = c.readAccount(ctx, tx.Account); err != nil {
			return nil, err
		}
	}

	var e *entry
	for {
		e, _ = c.store.getOrCreate(hash, tx)
		e.mu.Lock()
		if !e.removed {
			break
		}
		e.mu.Unlock()
	}

	if e.state.Terminal() {
		res := &Result{Snapshot: snapshot(e)}
		e.mu.Unlock()
		return res, nil
	}

	e.confirmations = confirmations
	var became bool
	if obs.Executed {
		e.state = StateExecuted
		e.executionID = obs.ExecutionID
	} else {
		if e.state == StateDraft {
			e.state = StateProposed
		}
		became = c.evaluate(e, acct)
	}
	res := &Result{Snapshot: snapshot(e), BecameExecutable: became}
	e.mu.Unlock()

	c.notify(res)
	return res, nil
}

// Get returns a snapshot of a known transaction.
func (c *Coordinator) Get(hash common.Hash) (*Snapshot, bool) {
	e, ok := c.store.get(hash)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || e.state == StateDraft {
		return nil, false
	}
	snap := snapshot(e)
	return &snap, true
}

// evaluate recomputes the state from confirmations by current owners and
// reports whether this call is the first to reach the threshold.
func (c *Coordinator) evaluate(e *entry, acct *AccountState) bool {
	e.threshold = acct.Threshold
	valid := len(ownerConfirmations(e, acct))

	switch {
	case acct.Threshold > 0 && valid >= acct.Threshold:
		e.state = StateExecutable
	case valid == 0:
		e.state = StateProposed
	default:
		e.state = StateConfirming
	}

	if e.state == StateExecutable && !e.signalled {
		e.signalled = true
		return true
	}
	return false
}

func (c *Coordinator) notify(res *Result) {
	if res == nil || !res.BecameExecutable {
		return
	}
	c.logger.Info("transaction executable",
		zap.String("safe_tx_hash", res.Hash.Hex()),
		zap.Int("confirmations", len(res.Confirmations)),
		zap.Int("threshold", res.Threshold))
	if c.onExecutable != nil {
		c.onExecutable(res.Snapshot)
	}
}

func (c *Coordinator) lockEntry(hash common.Hash) (*entry, error) {
	e, ok := c.store.get(hash)
	if !ok {
		return nil, apperr.ErrUnknownTransaction.Newf("no transaction %s", hash.Hex())
	}
	e.mu.Lock()
	if e.removed || e.state == StateDraft {
		e.mu.Unlock()
		return nil, apperr.ErrUnknownTransaction.Newf("no transaction %s", hash.Hex())
	}
	return e, nil
}

func (c *Coordinator) readAccount(ctx context.Context, account common.Address) (*AccountState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	acct, err := c.accounts.AccountState(ctx, account)
	if err != nil {
		return nil, unavailable("ledger", err)
	}
	return acct, nil
}

func checkOpen(e *entry) error {
	switch e.state {
	case StateExecuted:
		return apperr.ErrAlreadyExecuted.Newf("%s was executed as %s", e.hash.Hex(), e.executionID)
	case StateFailed:
		return apperr.ErrInvalidState.Newf("%s failed: %s", e.hash.Hex(), e.failure)
	}
	return nil
}

func runPublish(ctx context.Context, publish PublishFunc) error {
	if publish == nil {
		return nil
	}
	return publish(ctx)
}

// unavailable keeps errors that already carry a taxonomy root and labels the
// rest as ServiceUnavailable, preserving their message.
func unavailable(service string, err error) error {
	var upstream *apperr.UpstreamError
	if errors.As(err, &upstream) || apperr.Root(err) != nil {
		return err
	}
	return apperr.Unavailable(service, err)
}

func ownerConfirmations(e *entry, acct *AccountState) []safetx.Confirmation {
	out := make([]safetx.Confirmation, 0, len(e.confirmations))
	for owner, conf := range e.confirmations {
		if acct.IsOwner(owner) {
			out = append(out, conf)
		}
	}
	return out
}

func snapshot(e *entry) Snapshot {
	confs := make([]safetx.Confirmation, 0, len(e.confirmations))
	for _, conf := range e.confirmations {
		conf.Signature = clone(conf.Signature)
		confs = append(confs, conf)
	}
	slices.SortFunc(confs, func(a, b safetx.Confirmation) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return address.Compare(a.Owner, b.Owner)
	})
	return Snapshot{
		Hash:          e.hash,
		Tx:            e.tx.Clone(),
		State:         e.state,
		Confirmations: confs,
		Threshold:     e.threshold,
		ExecutionID:   e.executionID,
		Failure:       e.failure,
	}
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
