package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlexZinkM/joint-wallet/delegation"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/client"
	"github.com/AlexZinkM/joint-wallet/internal/model"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"
	"github.com/AlexZinkM/joint-wallet/internal/safetx"
	"github.com/AlexZinkM/joint-wallet/internal/webhookledger"
	"github.com/AlexZinkM/joint-wallet/safe"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	chainID = big.NewInt(11155111)
	account = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	dest    = common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	txHash  = common.HexToHash("0xab" + strings.Repeat("00", 31))
)

type fakeService struct {
	mu       sync.Mutex
	proposal *safe.Proposal
	owner    common.Address
	calls    int
	err      error
	snap     quorum.Snapshot
}

func (f *fakeService) record() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeService) Propose(ctx context.Context, p *safe.Proposal) (*quorum.Result, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	f.proposal = p
	return &quorum.Result{Snapshot: quorum.Snapshot{
		Hash:          p.Tx.Hash(),
		Tx:            p.Tx,
		State:         quorum.StateConfirming,
		Threshold:     2,
		Confirmations: []safetx.Confirmation{{Owner: p.Sender, Signature: p.Signature, SubmittedAt: time.Now()}},
	}}, nil
}

func (f *fakeService) Confirm(ctx context.Context, hash common.Hash, owner common.Address, sig []byte) (*quorum.Result, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	f.owner = owner
	return &quorum.Result{Snapshot: f.snap, BecameExecutable: true}, nil
}

func (f *fakeService) Transaction(ctx context.Context, hash common.Hash) (*quorum.Result, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	return &quorum.Result{Snapshot: f.snap}, nil
}

func (f *fakeService) Pending(ctx context.Context, acct common.Address) (int, []quorum.Snapshot, error) {
	if err := f.record(); err != nil {
		return 0, nil, err
	}
	return 3, []quorum.Snapshot{f.snap}, nil
}

func (f *fakeService) Execute(ctx context.Context, hash common.Hash) (*quorum.Snapshot, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	snap := f.snap
	snap.State = quorum.StateExecuted
	snap.ExecutionID = "0xexec"
	return &snap, nil
}

type fakeProcessor struct {
	body      []byte
	signature string
	out       *delegation.Outcome
	err       error
}

func (f *fakeProcessor) Handle(ctx context.Context, body []byte, signature string) (*delegation.Outcome, error) {
	f.body = body
	f.signature = signature
	return f.out, f.err
}

type fakeTrigger struct {
	walletID, chain string
	capability      client.Capability
	err             error
}

func (f *fakeTrigger) RequestDelegation(ctx context.Context, walletID, chain string) (client.Capability, error) {
	f.walletID, f.chain = walletID, chain
	return f.capability, f.err
}

func snapshot() quorum.Snapshot {
	tx := &safetx.Transaction{
		ChainID: chainID,
		Account: account,
		To:      dest,
		Value:   big.NewInt(5),
		Nonce:   big.NewInt(7),
	}
	return quorum.Snapshot{Hash: tx.Hash(), Tx: tx, State: quorum.StateExecutable, Threshold: 1}
}

func newMux(t *testing.T, svc TransactionService, proc WebhookProcessor, trigger DelegationTrigger) *http.ServeMux {
	t.Helper()
	logger := zaptest.NewLogger(t)
	sh := NewSafeHandler(svc, chainID, logger)
	dh := NewDelegationHandler(proc, trigger, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /safes/{account}/transactions", sh.ProposeTransaction)
	mux.HandleFunc("GET /safes/{account}/transactions", sh.ListTransactions)
	mux.HandleFunc("GET /transactions/{hash}", sh.GetTransaction)
	mux.HandleFunc("POST /transactions/{hash}/confirmations", sh.ConfirmTransaction)
	mux.HandleFunc("POST /transactions/{hash}/execute", sh.ExecuteTransaction)
	mux.HandleFunc("GET /transactions/{hash}/qr", sh.TransactionQR)
	mux.HandleFunc("POST /wallets/{walletId}/delegation", dh.RequestDelegation)
	mux.HandleFunc("POST /webhooks/delegation", dh.Webhook)
	return mux
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestProposeTransaction(t *testing.T) {
	svc := &fakeService{}
	mux := newMux(t, svc, &fakeProcessor{}, nil)

	body, err := json.Marshal(model.ProposeRequest{
		To:        dest.Hex(),
		Value:     "1000000000000000000",
		Nonce:     "7",
		Sender:    dest.Hex(),
		Signature: hexutil.Encode(make([]byte, safetx.SignatureLength)),
	})
	require.NoError(t, err)

	rec := serve(mux, http.MethodPost, "/safes/"+account.Hex()+"/transactions", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, account.Hex(), resp.Safe)
	assert.Equal(t, "confirming", resp.State)
	assert.Equal(t, "1.000000000000000000", resp.ValueEth)
	assert.Equal(t, 2, resp.Threshold)
	require.Len(t, resp.Confirmations, 1)
	assert.Equal(t, dest.Hex(), resp.Confirmations[0].Owner)

	require.NotNil(t, svc.proposal)
	assert.Equal(t, account, svc.proposal.Tx.Account)
	assert.Equal(t, 0, svc.proposal.Tx.ChainID.Cmp(chainID))
}

func TestProposeTransactionRejectsBadBodies(t *testing.T) {
	cases := map[string]struct {
		path string
		body string
		code string
	}{
		"empty body":    {"/safes/" + account.Hex() + "/transactions", "", "invalid_input"},
		"unknown field": {"/safes/" + account.Hex() + "/transactions", `{"to":"x","extra":1}`, "invalid_input"},
		"bad account":   {"/safes/0x1234/transactions", `{"to":"` + dest.Hex() + `","nonce":"1","sender":"` + dest.Hex() + `","signature":"0x00"}`, "invalid_address"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{}
			mux := newMux(t, svc, &fakeProcessor{}, nil)

			rec := serve(mux, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
			assert.Zero(t, svc.calls)
		})
	}
}

func TestConfirmTransactionErrorMapping(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
		msg    string
	}{
		"not owner":        {apperr.ErrNotOwner, http.StatusForbidden, "not_owner", ""},
		"already signed":   {apperr.ErrAlreadySigned.New("owner signed at 10:00"), http.StatusConflict, "already_signed", ""},
		"hash mismatch":    {apperr.ErrHashMismatch, http.StatusUnprocessableEntity, "hash_mismatch", ""},
		"unknown":          {apperr.ErrUnknownTransaction, http.StatusNotFound, "unknown_transaction", ""},
		"relay down":       {apperr.Unavailable("relay", errors.New("connection refused")), http.StatusServiceUnavailable, "upstream_error", "connection refused"},
		"relay rejected":   {apperr.NewUpstreamError("relay", http.StatusBadRequest, `{"nonce":["too low"]}`), http.StatusBadRequest, "upstream_error", `{"nonce":["too low"]}`},
		"unexpected error": {errors.New("boom"), http.StatusInternalServerError, "internal", "boom"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			mux := newMux(t, svc, &fakeProcessor{}, nil)

			body := `{"owner":"` + dest.Hex() + `","signature":"` + hexutil.Encode(make([]byte, safetx.SignatureLength)) + `"}`
			rec := serve(mux, http.MethodPost, "/transactions/"+txHash.Hex()+"/confirmations", body)
			assert.Equal(t, tc.status, rec.Code)

			resp := decodeError(t, rec)
			assert.Equal(t, tc.code, resp.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, resp.Error)
			}
		})
	}
}

func TestConfirmTransaction(t *testing.T) {
	svc := &fakeService{snap: snapshot()}
	mux := newMux(t, svc, &fakeProcessor{}, nil)

	body := `{"owner":"` + strings.ToLower(dest.Hex()) + `","signature":"` + hexutil.Encode(make([]byte, safetx.SignatureLength)) + `"}`
	rec := serve(mux, http.MethodPost, "/transactions/"+txHash.Hex()+"/confirmations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.BecameExecutable)
	assert.Equal(t, "executable", resp.State)
	assert.Equal(t, dest, svc.owner)
}

func TestConfirmTransactionValidation(t *testing.T) {
	svc := &fakeService{}
	mux := newMux(t, svc, &fakeProcessor{}, nil)

	rec := serve(mux, http.MethodPost, "/transactions/0x12/confirmations", `{"owner":"a","signature":"b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodPost, "/transactions/"+txHash.Hex()+"/confirmations", `{"owner":"`+dest.Hex()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "signature is required", decodeError(t, rec).Error)

	rec = serve(mux, http.MethodPost, "/transactions/"+txHash.Hex()+"/confirmations", `{"owner":"`+dest.Hex()+`","signature":"0x1234"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Zero(t, svc.calls)
}

func TestListAndGetTransactions(t *testing.T) {
	snap := snapshot()
	svc := &fakeService{snap: snap}
	mux := newMux(t, svc, &fakeProcessor{}, nil)

	rec := serve(mux, http.MethodGet, "/safes/"+account.Hex()+"/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.TransactionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)
	require.Len(t, list.Results, 1)
	assert.Equal(t, snap.Hash.Hex(), list.Results[0].SafeTxHash)
	assert.Equal(t, "7", list.Results[0].Nonce)

	rec = serve(mux, http.MethodGet, "/transactions/"+snap.Hash.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one model.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "executable", one.State)
	assert.Empty(t, one.Confirmations)
}

func TestExecuteTransaction(t *testing.T) {
	svc := &fakeService{snap: snapshot()}
	mux := newMux(t, svc, &fakeProcessor{}, nil)

	rec := serve(mux, http.MethodPost, "/transactions/"+txHash.Hex()+"/execute", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ExecuteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "executed", resp.State)
	assert.Equal(t, "0xexec", resp.ExecutionID)

	svc.err = apperr.ErrThresholdNotMet.New("1 of 2 confirmations")
	rec = serve(mux, http.MethodPost, "/transactions/"+txHash.Hex()+"/execute", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1 of 2 confirmations: threshold not met", decodeError(t, rec).Error)
}

func TestTransactionQR(t *testing.T) {
	mux := newMux(t, &fakeService{}, &fakeProcessor{}, nil)
	pngMagic := []byte{0x89, 'P', 'N', 'G'}

	rec := serve(mux, http.MethodGet, "/transactions/"+txHash.Hex()+"/qr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))

	rec = serve(mux, http.MethodGet, "/transactions/"+txHash.Hex()+"/qr?format=base64", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.QRResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, txHash.Hex(), resp.SafeTxHash)
	png, err := base64.StdEncoding.DecodeString(resp.QR)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	rec = serve(mux, http.MethodGet, "/transactions/"+txHash.Hex()+"/qr?format=svg", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook(t *testing.T) {
	proc := &fakeProcessor{out: &delegation.Outcome{
		EventID:   "evt-1",
		Processed: true,
		Record:    &webhookledger.Record{ID: "rec-1"},
	}}
	mux := newMux(t, &fakeService{}, proc, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/delegation", strings.NewReader(`{"eventId":"evt-1"}`))
	req.Header.Set(delegation.SignatureHeader, "sha256=abc")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.WebhookResponse{Received: true, EventID: "evt-1", Processed: true, RecordID: "rec-1"}, resp)
	assert.Equal(t, `{"eventId":"evt-1"}`, string(proc.body))
	assert.Equal(t, "sha256=abc", proc.signature)
}

func TestWebhookErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"unverified":    {apperr.ErrWebhookUnverified, http.StatusUnauthorized},
		"malformed":     {apperr.ErrInvalidInput.New("eventId is required"), http.StatusBadRequest},
		"unwrap failed": {apperr.ErrKeyUnwrapFailure, http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mux := newMux(t, &fakeService{}, &fakeProcessor{err: tc.err}, nil)
			rec := serve(mux, http.MethodPost, "/webhooks/delegation", `{}`)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequestDelegation(t *testing.T) {
	t.Run("no provisioning service", func(t *testing.T) {
		mux := newMux(t, &fakeService{}, &fakeProcessor{}, nil)
		rec := serve(mux, http.MethodPost, "/wallets/w1/delegation", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp model.DelegationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "w1", resp.WalletID)
		assert.Equal(t, string(client.CapabilityUnsupported), resp.Capability)
	})

	t.Run("requested", func(t *testing.T) {
		trigger := &fakeTrigger{capability: client.CapabilityRequested}
		mux := newMux(t, &fakeService{}, &fakeProcessor{}, trigger)
		rec := serve(mux, http.MethodPost, "/wallets/w1/delegation", `{"chain":"EVM"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "w1", trigger.walletID)
		assert.Equal(t, "EVM", trigger.chain)
	})

	t.Run("empty body", func(t *testing.T) {
		trigger := &fakeTrigger{capability: client.CapabilityUnsupported}
		mux := newMux(t, &fakeService{}, &fakeProcessor{}, trigger)
		rec := serve(mux, http.MethodPost, "/wallets/w2/delegation", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "w2", trigger.walletID)
		assert.Empty(t, trigger.chain)
	})

	t.Run("provisioning down", func(t *testing.T) {
		trigger := &fakeTrigger{err: apperr.Unavailable("provisioning", errors.New("timeout"))}
		mux := newMux(t, &fakeService{}, &fakeProcessor{}, trigger)
		rec := serve(mux, http.MethodPost, "/wallets/w1/delegation", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
