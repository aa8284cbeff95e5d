package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const executorService = "executor"

// ExecutorConfig configures an ExecutorClient.
type ExecutorConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// ExecutorClient submits signed bundles to the execution service, which
// pays gas and sends execTransaction to the account contract.
type ExecutorClient struct {
	rest *restClient
}

type executeRequest struct {
	ChainID string `json:"chainId"`
	Target  string `json:"target"`
	Data    string `json:"data"`
}

type executeResponse struct {
	TaskID          string `json:"taskId"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// NewExecutorClient creates a new executor client
func NewExecutorClient(cfg ExecutorConfig) *ExecutorClient {
	rest := newRESTClient(executorService, cfg.BaseURL, cfg.Timeout, cfg.Logger)
	if cfg.APIKey != "" {
		rest.authHeader = "Authorization"
		rest.authValue = "Bearer " + cfg.APIKey
	}
	return &ExecutorClient{rest: rest}
}

// Calldata encodes execTransaction for tx with the given signature bundle.
func Calldata(tx *safetx.Transaction, signatures []byte) ([]byte, error) {
	data, err := safeABI.Pack("execTransaction",
		tx.To,
		orZero(tx.Value),
		nonNil(tx.Data),
		uint8(tx.Operation),
		orZero(tx.SafeTxGas),
		orZero(tx.BaseGas),
		orZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		nonNil(signatures),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack execTransaction: %w", err)
	}
	return data, nil
}

// Submit sends the bundle once. A 4xx answer is a ledger rejection carrying
// the executor's text unchanged; a 5xx, timeout or transport failure means
// the bundle may not have been accepted.
func (c *ExecutorClient) Submit(ctx context.Context, tx *safetx.Transaction, signatures []byte) (string, error) {
	data, err := Calldata(tx, signatures)
	if err != nil {
		return "", err
	}

	req := executeRequest{
		ChainID: orZero(tx.ChainID).String(),
		Target:  address.String(tx.Account),
		Data:    hexutil.Encode(data),
	}

	status, body, err := c.rest.do(ctx, http.MethodPost, "", req)
	if err != nil {
		var upstream *apperr.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
			return "", upstream.Classify(apperr.ErrLedgerRejected)
		}
		return "", apperr.FromContext(executorService, err)
	}

	// Any 2xx means the bundle was accepted; the reply only labels it.
	var resp executeResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			c.rest.logger.Warn("undecodable executor reply for accepted bundle",
				zap.Int("status", status), zap.Error(err))
		}
	}

	if resp.TransactionHash != "" {
		return resp.TransactionHash, nil
	}
	if resp.TaskID == "" {
		c.rest.logger.Warn("executor accepted bundle without an id", zap.Int("status", status))
	}
	return resp.TaskID, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
