package client

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/model"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const relayService = "relay"

// RelayConfig configures a RelayClient.
type RelayConfig struct {
	BaseURL       string
	APIKey        string
	ChainID       *big.Int
	RatePerSecond float64
	Timeout       time.Duration
	Logger        *zap.Logger
}

// RelayClient talks to the transaction relay, which stores proposed
// transactions and their confirmations for every owner to see.
type RelayClient struct {
	rest    *restClient
	chainID *big.Int
}

// NewRelayClient creates a new relay client
func NewRelayClient(cfg RelayConfig) *RelayClient {
	rest := newRESTClient(relayService, cfg.BaseURL, cfg.Timeout, cfg.Logger)
	if cfg.APIKey != "" {
		rest.authHeader = "Authorization"
		rest.authValue = "Bearer " + cfg.APIKey
	}
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		rest.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &RelayClient{rest: rest, chainID: new(big.Int).Set(cfg.ChainID)}
}

// Propose publishes a new transaction with the proposer's signature.
// A 201 with an empty body is success.
func (c *RelayClient) Propose(ctx context.Context, tx *safetx.Transaction, sender common.Address, sig []byte, origin string) error {
	data := hexutil.Encode(tx.Data)
	req := model.RelayProposeRequest{
		To:                      address.String(tx.To),
		Value:                   model.NewUint256(tx.Value),
		Data:                    &data,
		Operation:               uint8(tx.Operation),
		SafeTxGas:               model.NewUint256(tx.SafeTxGas),
		BaseGas:                 model.NewUint256(tx.BaseGas),
		GasPrice:                model.NewUint256(tx.GasPrice),
		GasToken:                address.String(tx.GasToken),
		RefundReceiver:          address.String(tx.RefundReceiver),
		Nonce:                   model.NewUint256(tx.Nonce),
		ContractTransactionHash: tx.Hash().Hex(),
		Sender:                  address.String(sender),
		Signature:               hexutil.Encode(sig),
	}
	if origin != "" {
		req.Origin = &origin
	}

	path := fmt.Sprintf("/api/v1/safes/%s/multisig-transactions/", address.String(tx.Account))
	_, err := c.rest.post(ctx, path, req, nil)
	return err
}

// Confirm publishes an owner's signature for a known transaction. The relay
// rejects a second signature from the same owner.
func (c *RelayClient) Confirm(ctx context.Context, hash common.Hash, sig []byte) error {
	path := fmt.Sprintf("/api/v1/multisig-transactions/%s/confirmations/", hash.Hex())
	_, err := c.rest.post(ctx, path, model.RelayConfirmRequest{Signature: hexutil.Encode(sig)}, nil)
	return err
}

// Pending lists the account's unexecuted transactions, ordered by nonce.
// It returns the relay's total count alongside the decoded page.
func (c *RelayClient) Pending(ctx context.Context, account common.Address) (int, []quorum.Observed, error) {
	q := url.Values{}
	q.Set("executed", "false")
	q.Set("ordering", "nonce")
	path := fmt.Sprintf("/api/v1/safes/%s/multisig-transactions/?%s", address.String(account), q.Encode())

	var list model.RelayTransactionList
	if err := c.rest.get(ctx, path, &list); err != nil {
		return 0, nil, err
	}
	if err := list.Validate(); err != nil {
		return 0, nil, invalidRelayResponse(err)
	}

	out := make([]quorum.Observed, 0, len(list.Results))
	for i := range list.Results {
		obs, err := c.observe(&list.Results[i])
		if err != nil {
			return 0, nil, err
		}
		if obs.Tx.Account != account {
			return 0, nil, invalidRelayResponse(fmt.Errorf("transaction %s belongs to %s", list.Results[i].SafeTxHash, obs.Tx.Account.Hex()))
		}
		out = append(out, *obs)
	}
	return list.Count, out, nil
}

// Transaction fetches one transaction with its full confirmation list.
func (c *RelayClient) Transaction(ctx context.Context, hash common.Hash) (*quorum.Observed, error) {
	var rt model.RelayTransaction
	if err := c.rest.get(ctx, fmt.Sprintf("/api/v1/multisig-transactions/%s/", hash.Hex()), &rt); err != nil {
		return nil, err
	}
	if err := rt.Validate(); err != nil {
		return nil, invalidRelayResponse(err)
	}
	obs, err := c.observe(&rt)
	if err != nil {
		return nil, err
	}
	if got := obs.Tx.Hash(); got != hash {
		return nil, apperr.ErrHashMismatch.Newf("relay returned transaction %s for %s", got.Hex(), hash.Hex())
	}
	return obs, nil
}

// observe converts a validated relay transaction and checks the hash the
// relay reports against the one recomputed from its fields.
func (c *RelayClient) observe(rt *model.RelayTransaction) (*quorum.Observed, error) {
	tx, err := c.transaction(rt)
	if err != nil {
		return nil, invalidRelayResponse(err)
	}
	if got := tx.Hash(); got != common.HexToHash(rt.SafeTxHash) {
		return nil, apperr.ErrHashMismatch.Newf("relay hash %s, recomputed %s", rt.SafeTxHash, got.Hex())
	}

	obs := &quorum.Observed{Tx: tx, Executed: rt.IsExecuted}
	if rt.TransactionHash != nil {
		obs.ExecutionID = *rt.TransactionHash
	}
	for i := range rt.Confirmations {
		rc := &rt.Confirmations[i]
		if !rc.Offchain() {
			c.rest.logger.Debug("skipping onchain confirmation",
				zap.String("safe_tx_hash", rt.SafeTxHash),
				zap.String("signature_type", rc.SignatureType))
			continue
		}
		owner, err := address.Normalize(rc.Owner)
		if err != nil {
			return nil, invalidRelayResponse(err)
		}
		sig, err := hexutil.Decode(*rc.Signature)
		if err != nil {
			return nil, invalidRelayResponse(err)
		}
		obs.Confirmations = append(obs.Confirmations, safetx.Confirmation{
			Owner:       owner,
			Signature:   sig,
			SubmittedAt: rc.SubmissionDate,
		})
	}
	return obs, nil
}

func (c *RelayClient) transaction(rt *model.RelayTransaction) (*safetx.Transaction, error) {
	account, err := address.Normalize(rt.Safe)
	if err != nil {
		return nil, fmt.Errorf("safe: %w", err)
	}
	to, err := address.Normalize(rt.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	gasToken, err := optionalAddress(rt.GasToken)
	if err != nil {
		return nil, fmt.Errorf("gasToken: %w", err)
	}
	refundReceiver, err := optionalAddress(rt.RefundReceiver)
	if err != nil {
		return nil, fmt.Errorf("refundReceiver: %w", err)
	}
	var data []byte
	if rt.Data != nil {
		if data, err = hexutil.Decode(*rt.Data); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
	}

	tx := &safetx.Transaction{
		ChainID:        new(big.Int).Set(c.chainID),
		Account:        account,
		To:             to,
		Value:          rt.Value.Int,
		Data:           data,
		Operation:      safetx.Operation(rt.Operation),
		SafeTxGas:      rt.SafeTxGas.Int,
		BaseGas:        rt.BaseGas.Int,
		GasPrice:       rt.GasPrice.Int,
		GasToken:       gasToken,
		RefundReceiver: refundReceiver,
		Nonce:          rt.Nonce.Int,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

func optionalAddress(raw *string) (common.Address, error) {
	if raw == nil || *raw == "" {
		return address.Wildcard, nil
	}
	return address.Normalize(*raw)
}

func invalidRelayResponse(err error) error {
	return apperr.Unavailable(relayService, fmt.Errorf("invalid relay response: %w", err))
}
