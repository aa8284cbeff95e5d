package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/AlexZinkM/joint-wallet/delegation"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/client"
	"github.com/AlexZinkM/joint-wallet/internal/logging"
	"github.com/AlexZinkM/joint-wallet/internal/model"

	"go.uber.org/zap"
)

// WebhookProcessor handles verified delivery bodies. *delegation.Processor satisfies it.
type WebhookProcessor interface {
	Handle(ctx context.Context, body []byte, signature string) (*delegation.Outcome, error)
}

// DelegationTrigger asks the provisioning service for delegation. *client.ProvisioningClient satisfies it.
type DelegationTrigger interface {
	RequestDelegation(ctx context.Context, walletID, chain string) (client.Capability, error)
}

// DelegationHandler serves the delegation endpoints
type DelegationHandler struct {
	processor WebhookProcessor
	trigger   DelegationTrigger
	logger    *zap.Logger
}

// NewDelegationHandler creates a new DelegationHandler. trigger may be nil
// when no provisioning service is configured.
func NewDelegationHandler(processor WebhookProcessor, trigger DelegationTrigger, logger *zap.Logger) *DelegationHandler {
	return &DelegationHandler{processor: processor, trigger: trigger, logger: logging.OrNop(logger)}
}

// Webhook handles POST /webhooks/delegation
// @Summary      Delegation webhook
// @Description  Verifies the HMAC signature, then materializes the delegated credentials exactly once per eventId
// @Tags         delegation
// @Accept       json
// @Produce      json
// @Param        x-dynamic-signature-256  header    string  true  "HMAC-SHA256 of the raw body"
// @Success      200                      {object}  model.WebhookResponse
// @Failure      400                      {object}  model.ErrorResponse
// @Failure      401                      {object}  model.ErrorResponse
// @Failure      422                      {object}  model.ErrorResponse
// @Router       /webhooks/delegation [post]
func (h *DelegationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, h.logger, apperr.ErrInvalidInput.Newf("failed to read body: %v", err))
		return
	}

	out, err := h.processor.Handle(r.Context(), body, r.Header.Get(delegation.SignatureHeader))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := model.WebhookResponse{
		Received:  true,
		EventID:   out.EventID,
		Processed: out.Processed,
		Duplicate: out.Duplicate,
	}
	if out.Record != nil {
		resp.RecordID = out.Record.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequestDelegation handles POST /wallets/{walletId}/delegation
// @Summary      Request delegation
// @Description  Asks the provisioning service to delegate the wallet; credentials arrive later through the webhook
// @Tags         delegation
// @Accept       json
// @Produce      json
// @Param        walletId  path      string                   true   "Wallet id"
// @Param        request   body      model.DelegationRequest  false  "Optional chain"
// @Success      202       {object}  model.DelegationResponse
// @Success      200       {object}  model.DelegationResponse
// @Failure      503       {object}  model.ErrorResponse
// @Router       /wallets/{walletId}/delegation [post]
func (h *DelegationHandler) RequestDelegation(w http.ResponseWriter, r *http.Request) {
	walletID := r.PathValue("walletId")
	if h.trigger == nil {
		writeJSON(w, http.StatusOK, model.DelegationResponse{
			WalletID:   walletID,
			Capability: string(client.CapabilityUnsupported),
			Message:    "no provisioning service configured",
		})
		return
	}

	var req model.DelegationRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, h.logger, err)
		return
	}

	capability, err := h.trigger.RequestDelegation(r.Context(), walletID, req.Chain)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusAccepted
	msg := "delegation requested; credentials will arrive by webhook"
	if capability == client.CapabilityUnsupported {
		status = http.StatusOK
		msg = "delegation is not supported for this wallet"
	}
	writeJSON(w, status, model.DelegationResponse{WalletID: walletID, Capability: string(capability), Message: msg})
}
