package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testChainID = big.NewInt(11155111)
	testAccount = address.MustNormalize("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	testTo      = address.MustNormalize("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func testTx(nonce int64) *safetx.Transaction {
	return &safetx.Transaction{
		ChainID: testChainID,
		Account: testAccount,
		To:      testTo,
		Value:   big.NewInt(1_000_000_000_000_000),
		Data:    []byte{0xde, 0xad, 0xbe, 0xef},
		Nonce:   big.NewInt(nonce),
	}
}

func newTestRelay(t *testing.T, handler http.HandlerFunc) *RelayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewRelayClient(RelayConfig{BaseURL: srv.URL, APIKey: "relay-key", ChainID: testChainID, RatePerSecond: 1000})
	c.rest.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return c
}

type signer struct {
	addr common.Address
	sign func(common.Hash) []byte
}

func newSigner(t *testing.T) signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return signer{
		addr: crypto.PubkeyToAddress(key.PublicKey),
		sign: func(h common.Hash) []byte {
			sig, err := safetx.Sign(h, key)
			require.NoError(t, err)
			return sig
		},
	}
}

// relayJSON renders tx the way the relay reports it.
func relayJSON(tx *safetx.Transaction, confirmations map[common.Address][]byte) map[string]any {
	confs := []map[string]any{}
	for owner, sig := range confirmations {
		confs = append(confs, map[string]any{
			"owner":           owner.Hex(),
			"submissionDate":  "2024-05-01T10:00:00Z",
			"transactionHash": nil,
			"signature":       hexutil.Encode(sig),
			"signatureType":   "EOA",
		})
	}
	return map[string]any{
		"safe":                  tx.Account.Hex(),
		"to":                    tx.To.Hex(),
		"value":                 tx.Value.String(),
		"data":                  hexutil.Encode(tx.Data),
		"operation":             int(tx.Operation),
		"gasToken":              address.String(tx.GasToken),
		"safeTxGas":             0,
		"baseGas":               "0",
		"gasPrice":              "0",
		"refundReceiver":        address.String(tx.RefundReceiver),
		"nonce":                 tx.Nonce.Int64(),
		"submissionDate":        "2024-05-01T10:00:00Z",
		"safeTxHash":            tx.Hash().Hex(),
		"isExecuted":            false,
		"confirmationsRequired": 2,
		"confirmations":         confs,
		"trusted":               true,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRelayPropose(t *testing.T) {
	owner := newSigner(t)
	tx := testTx(3)
	sig := owner.sign(tx.Hash())

	var got map[string]any
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/safes/"+testAccount.Hex()+"/multisig-transactions/", r.URL.Path)
		assert.Equal(t, "Bearer relay-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.Propose(context.Background(), tx, owner.addr, sig, "tests"))
	assert.Equal(t, tx.Hash().Hex(), got["contractTransactionHash"])
	assert.Equal(t, owner.addr.Hex(), got["sender"])
	assert.Equal(t, testTo.Hex(), got["to"])
	assert.Equal(t, "1000000000000000", got["value"])
	assert.Equal(t, "3", got["nonce"])
	assert.Equal(t, "0xdeadbeef", got["data"])
	assert.Equal(t, "0x0000000000000000000000000000000000000000", got["gasToken"])
	assert.Equal(t, hexutil.Encode(sig), got["signature"])
	assert.Equal(t, "tests", got["origin"])
}

func TestRelayProposeClientErrorIsVerbatim(t *testing.T) {
	const body = `{"nonce":["Nonce=3 too low, safe nonce is 4"]}`
	var calls atomic.Int32
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, body)
	})

	err := c.Propose(context.Background(), testTx(3), testTo, make([]byte, 65), "")
	require.Error(t, err)
	assert.Equal(t, body, err.Error())
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	assert.False(t, errors.Is(err, apperr.ErrServiceUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRelayPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.Confirm(context.Background(), testTx(1).Hash(), make([]byte, 65))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRelayConfirm(t *testing.T) {
	hash := testTx(1).Hash()
	sig := []byte{1, 2, 3}
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/multisig-transactions/"+hash.Hex()+"/confirmations/", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0x010203", body["signature"])
		writeJSON(w, http.StatusCreated, body)
	})

	require.NoError(t, c.Confirm(context.Background(), hash, sig))
}

func TestRelayTransaction(t *testing.T) {
	a, b := newSigner(t), newSigner(t)
	tx := testTx(5)
	hash := tx.Hash()

	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/multisig-transactions/"+hash.Hex()+"/", r.URL.Path)
		writeJSON(w, http.StatusOK, relayJSON(tx, map[common.Address][]byte{
			a.addr: a.sign(hash),
			b.addr: b.sign(hash),
		}))
	})

	obs, err := c.Transaction(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, hash, obs.Tx.Hash())
	assert.Equal(t, testChainID, obs.Tx.ChainID)
	assert.False(t, obs.Executed)
	require.Len(t, obs.Confirmations, 2)
	for _, conf := range obs.Confirmations {
		assert.NoError(t, safetx.Verify(hash, conf.Owner, conf.Signature))
	}
}

func TestRelayGetIsRetried(t *testing.T) {
	tx := testTx(5)
	var calls atomic.Int32
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, relayJSON(tx, nil))
	})

	_, err := c.Transaction(context.Background(), tx.Hash())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRelayGetGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "relay is down")
	})

	_, err := c.Transaction(context.Background(), testTx(1).Hash())
	require.Error(t, err)
	assert.Equal(t, "relay is down", err.Error())
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
	assert.Equal(t, int32(defaultGetTries), calls.Load())
}

func TestRelayGetNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not found."}`)
	})

	_, err := c.Transaction(context.Background(), testTx(1).Hash())
	require.Error(t, err)
	assert.Equal(t, `{"detail":"Not found."}`, err.Error())
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRelayTransactionHashMismatch(t *testing.T) {
	tx := testTx(5)
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		body := relayJSON(tx, nil)
		body["nonce"] = 6
		writeJSON(w, http.StatusOK, body)
	})

	_, err := c.Transaction(context.Background(), tx.Hash())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrHashMismatch))
}

func TestRelayRejectsUnknownShape(t *testing.T) {
	tx := testTx(5)
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		body := relayJSON(tx, nil)
		body["approvals"] = []string{}
		writeJSON(w, http.StatusOK, body)
	})

	_, err := c.Transaction(context.Background(), tx.Hash())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
}

func TestRelayRejectsBadChecksum(t *testing.T) {
	tx := testTx(5)
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		body := relayJSON(tx, nil)
		body["to"] = "0xFB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
		writeJSON(w, http.StatusOK, body)
	})

	_, err := c.Transaction(context.Background(), tx.Hash())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apperr.HTTPStatus(err))
}

func TestRelayPending(t *testing.T) {
	a := newSigner(t)
	tx1, tx2 := testTx(7), testTx(8)

	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/safes/"+testAccount.Hex()+"/multisig-transactions/", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("executed"))
		writeJSON(w, http.StatusOK, map[string]any{
			"count":    2,
			"next":     nil,
			"previous": nil,
			"results": []any{
				relayJSON(tx1, map[common.Address][]byte{a.addr: a.sign(tx1.Hash())}),
				relayJSON(tx2, nil),
			},
		})
	})

	count, pending, err := c.Pending(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, pending, 2)
	assert.Equal(t, tx1.Hash(), pending[0].Tx.Hash())
	assert.Len(t, pending[0].Confirmations, 1)
	assert.Equal(t, tx2.Hash(), pending[1].Tx.Hash())
}

func TestRelaySkipsOnchainApprovals(t *testing.T) {
	tx := testTx(2)
	c := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		body := relayJSON(tx, nil)
		body["confirmations"] = []any{map[string]any{
			"owner":           testTo.Hex(),
			"submissionDate":  "2024-05-01T10:00:00Z",
			"transactionHash": nil,
			"signature":       nil,
			"signatureType":   "APPROVED_HASH",
		}}
		writeJSON(w, http.StatusOK, body)
	})

	obs, err := c.Transaction(context.Background(), tx.Hash())
	require.NoError(t, err)
	assert.Empty(t, obs.Confirmations)
}
