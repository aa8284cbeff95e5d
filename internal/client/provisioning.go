package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/model"

	"go.uber.org/zap"
)

const provisioningService = "provisioning"

// Capability is the outcome of a delegation request.
type Capability string

const (
	// CapabilityRequested means the provisioning service accepted the
	// request; the credentials arrive later through the delegation webhook.
	CapabilityRequested Capability = "requested"
	// CapabilityUnsupported means the environment does not offer
	// server-side delegation for this wallet.
	CapabilityUnsupported Capability = "unsupported"
)

// ProvisioningConfig configures a ProvisioningClient.
type ProvisioningConfig struct {
	BaseURL       string
	Token         string
	EnvironmentID string
	Timeout       time.Duration
	Logger        *zap.Logger
}

// ProvisioningClient asks the wallet provisioning service to delegate a
// wallet's signing material to this service.
type ProvisioningClient struct {
	rest          *restClient
	environmentID string
}

// NewProvisioningClient creates a new provisioning client
func NewProvisioningClient(cfg ProvisioningConfig) (*ProvisioningClient, error) {
	if cfg.BaseURL == "" || cfg.EnvironmentID == "" {
		return nil, errors.New("provisioning base URL and environment id are required")
	}
	rest := newRESTClient(provisioningService, cfg.BaseURL, cfg.Timeout, cfg.Logger)
	if cfg.Token != "" {
		rest.authHeader = "Authorization"
		rest.authValue = "Bearer " + cfg.Token
	}
	// user objects carry many fields this service never reads
	rest.lenient = true
	return &ProvisioningClient{rest: rest, environmentID: cfg.EnvironmentID}, nil
}

// RequestDelegation triggers delegation for walletID. A 404 or 501 answer
// is reported as CapabilityUnsupported rather than an error.
func (c *ProvisioningClient) RequestDelegation(ctx context.Context, walletID, chain string) (Capability, error) {
	if walletID == "" {
		return "", apperr.ErrInvalidInput.New("walletId is required")
	}

	path := fmt.Sprintf("/api/v0/environments/%s/waas/%s/delegation",
		url.PathEscape(c.environmentID), url.PathEscape(walletID))
	_, err := c.rest.post(ctx, path, model.ProvisioningDelegationRequest{Chain: chain}, nil)
	if err == nil {
		c.rest.logger.Info("delegation requested", zap.String("wallet_id", walletID))
		return CapabilityRequested, nil
	}

	var upstream *apperr.UpstreamError
	if errors.As(err, &upstream) &&
		(upstream.StatusCode == http.StatusNotFound || upstream.StatusCode == http.StatusNotImplemented) {
		c.rest.logger.Info("delegation not supported",
			zap.String("wallet_id", walletID),
			zap.Int("status", upstream.StatusCode))
		return CapabilityUnsupported, nil
	}
	return "", apperr.FromContext(provisioningService, err)
}

// UserEmail returns the email of userID in the environment. It has the shape
// of delegation.DelegateLookup.
func (c *ProvisioningClient) UserEmail(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", apperr.ErrInvalidInput.New("userId is required")
	}

	path := fmt.Sprintf("/api/v0/environments/%s/users/%s",
		url.PathEscape(c.environmentID), url.PathEscape(userID))
	var resp model.ProvisioningUserResponse
	if err := c.rest.get(ctx, path, &resp); err != nil {
		return "", err
	}
	if resp.User.ID != "" && resp.User.ID != userID {
		return "", apperr.Unavailable(provisioningService,
			fmt.Errorf("provisioning returned user %q for %q", resp.User.ID, userID))
	}
	return resp.User.Email, nil
}
