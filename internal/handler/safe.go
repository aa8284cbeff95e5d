package handler

import (
	"context"
	"math/big"
	"net/http"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/logging"
	"github.com/AlexZinkM/joint-wallet/internal/model"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"
	"github.com/AlexZinkM/joint-wallet/safe"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// TransactionService is the quorum workflow. *safe.Service satisfies it.
type TransactionService interface {
	Propose(ctx context.Context, p *safe.Proposal) (*quorum.Result, error)
	Confirm(ctx context.Context, hash common.Hash, owner common.Address, sig []byte) (*quorum.Result, error)
	Transaction(ctx context.Context, hash common.Hash) (*quorum.Result, error)
	Pending(ctx context.Context, account common.Address) (int, []quorum.Snapshot, error)
	Execute(ctx context.Context, hash common.Hash) (*quorum.Snapshot, error)
}

// SafeHandler serves the shared-account transaction endpoints
type SafeHandler struct {
	service TransactionService
	chainID *big.Int
	logger  *zap.Logger
}

// NewSafeHandler creates a new SafeHandler
func NewSafeHandler(service TransactionService, chainID *big.Int, logger *zap.Logger) *SafeHandler {
	return &SafeHandler{service: service, chainID: new(big.Int).Set(chainID), logger: logging.OrNop(logger)}
}

// ProposeTransaction handles POST /safes/{account}/transactions
// @Summary      Propose a transaction
// @Description  Validates the proposer's signature over the identity hash, publishes the proposal to the relay and records the proposer's confirmation
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        account  path      string                true  "Shared account address"
// @Param        request  body      model.ProposeRequest  true  "Transaction fields and proposer signature"
// @Success      201      {object}  model.TransactionResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      503      {object}  model.ErrorResponse
// @Router       /safes/{account}/transactions [post]
func (h *SafeHandler) ProposeTransaction(w http.ResponseWriter, r *http.Request) {
	var req model.ProposeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	proposal, err := safe.ParseProposal(h.chainID, r.PathValue("account"), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.service.Propose(r.Context(), proposal)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, safe.ResultResponse(res))
}

// ListTransactions handles GET /safes/{account}/transactions
// @Summary      List pending transactions
// @Description  Lists the account's unexecuted transactions from the relay with their quorum state
// @Tags         transactions
// @Produce      json
// @Param        account  path      string  true  "Shared account address"
// @Success      200      {object}  model.TransactionListResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      503      {object}  model.ErrorResponse
// @Router       /safes/{account}/transactions [get]
func (h *SafeHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	account, err := address.Normalize(r.PathValue("account"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	count, pending, err := h.service.Pending(r.Context(), account)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := model.TransactionListResponse{Count: count, Results: make([]model.TransactionResponse, 0, len(pending))}
	for i := range pending {
		resp.Results = append(resp.Results, safe.Response(&pending[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTransaction handles GET /transactions/{hash}
// @Summary      Get a transaction
// @Description  Fetches the transaction and its confirmations from the relay
// @Tags         transactions
// @Produce      json
// @Param        hash  path      string  true  "Identity hash"
// @Success      200   {object}  model.TransactionResponse
// @Failure      404   {object}  model.ErrorResponse
// @Failure      503   {object}  model.ErrorResponse
// @Router       /transactions/{hash} [get]
func (h *SafeHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	hash, err := safe.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.service.Transaction(r.Context(), hash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, safe.ResultResponse(res))
}

// ConfirmTransaction handles POST /transactions/{hash}/confirmations
// @Summary      Confirm a transaction
// @Description  Adds an owner's signature; the response reports whether this confirmation made the transaction executable
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        hash     path      string                true  "Identity hash"
// @Param        request  body      model.ConfirmRequest  true  "Owner and signature"
// @Success      201      {object}  model.TransactionResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /transactions/{hash}/confirmations [post]
func (h *SafeHandler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	hash, err := safe.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req model.ConfirmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "invalid_input"})
		return
	}

	owner, err := address.ParseOwner(req.Owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sig, err := safe.DecodeSignature(req.Signature)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.service.Confirm(r.Context(), hash, owner, sig)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, safe.ResultResponse(res))
}

// ExecuteTransaction handles POST /transactions/{hash}/execute
// @Summary      Execute a transaction
// @Description  Re-reads confirmations from the relay, assembles the ordered signature bundle and submits it once
// @Tags         transactions
// @Produce      json
// @Param        hash  path      string  true  "Identity hash"
// @Success      200   {object}  model.ExecuteResponse
// @Failure      409   {object}  model.ErrorResponse
// @Failure      422   {object}  model.ErrorResponse
// @Failure      503   {object}  model.ErrorResponse
// @Router       /transactions/{hash}/execute [post]
func (h *SafeHandler) ExecuteTransaction(w http.ResponseWriter, r *http.Request) {
	hash, err := safe.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snap, err := h.service.Execute(r.Context(), hash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ExecuteResponse{
		SafeTxHash:  snap.Hash.Hex(),
		State:       snap.State.String(),
		ExecutionID: snap.ExecutionID,
	})
}

// TransactionQR handles GET /transactions/{hash}/qr
// @Summary      Identity hash QR code
// @Description  Renders the identity hash as a PNG QR code for signing devices; format=base64 returns JSON instead
// @Tags         transactions
// @Produce      png
// @Produce      json
// @Param        hash    path      string  true   "Identity hash"
// @Param        format  query     string  false  "png (default) or base64"
// @Success      200     {object}  model.QRResponse
// @Failure      400     {object}  model.ErrorResponse
// @Router       /transactions/{hash}/qr [get]
func (h *SafeHandler) TransactionQR(w http.ResponseWriter, r *http.Request) {
	hash, err := safe.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "png":
		png, err := qrPNG(hash.Hex())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	case "base64":
		qr, err := qrBase64(hash.Hex())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, model.QRResponse{SafeTxHash: hash.Hex(), QR: qr})
	default:
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "format must be png or base64", Code: "invalid_input"})
	}
}
