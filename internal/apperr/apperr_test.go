package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDuplicateCodePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(10, "again", http.StatusTeapot)
	})
}

func TestWrappedRootIsDetected(t *testing.T) {
	err := ErrNotOwner.Newf("owner %s", "0xabc")
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, ErrNotOwner, Root(fmt.Errorf("confirm: %w", err)))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))
	assert.Equal(t, "not_owner", CodeName(err))
}

func TestUpstreamErrorKeepsMessage(t *testing.T) {
	err := NewUpstreamError("relay", http.StatusBadRequest, `{"nonce":["Nonce=3 too low"]}`)
	assert.Equal(t, `{"nonce":["Nonce=3 too low"]}`, err.Error())
	assert.False(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.Equal(t, "upstream_error", CodeName(err))

	wrapped := fmt.Errorf("propose: %w", NewUpstreamError("relay", http.StatusBadGateway, "bad gateway"))
	assert.ErrorIs(t, wrapped, ErrServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(wrapped))
}

func TestFromContext(t *testing.T) {
	err := FromContext("ledger", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other := errors.New("boom")
	assert.Same(t, other, FromContext("ledger", other))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Equal(t, "internal", CodeName(err))
}

func TestWebhookUnverifiedIsServiceUnavailableClass(t *testing.T) {
	err := ErrWebhookUnverified.New("signature header missing")
	assert.ErrorIs(t, err, ErrWebhookUnverified)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
	assert.Equal(t, "webhook_unverified", CodeName(err))

	assert.False(t, errors.Is(ErrServiceUnavailable, ErrWebhookUnverified))
	assert.False(t, errors.Is(ErrInvalidInput, ErrServiceUnavailable))
}

func TestClassifiedUpstreamErrorKeepsMessage(t *testing.T) {
	base := NewUpstreamError("executor", http.StatusUnprocessableEntity, "GS026: invalid owner provided")
	err := fmt.Errorf("execute: %w", base.Classify(ErrLedgerRejected))

	assert.ErrorIs(t, err, ErrLedgerRejected)
	assert.False(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, "execute: GS026: invalid owner provided", err.Error())
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))
	assert.Equal(t, "ledger_rejected", CodeName(err))

	assert.False(t, errors.Is(base, ErrLedgerRejected))
}
