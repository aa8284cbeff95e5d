package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/logging"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 4 << 20
	defaultGetTries = 4
)

// restClient is the JSON transport shared by the collaborator clients.
// Non-2xx responses become *apperr.UpstreamError with the body as message.
// Bodies are decoded strictly unless lenient is set.
type restClient struct {
	service    string
	baseURL    string
	authHeader string
	authValue  string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	getTries   uint
	backoff    func() backoff.BackOff
	lenient    bool
}

func newRESTClient(service, baseURL string, timeout time.Duration, logger *zap.Logger) *restClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &restClient{
		service:  service,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.OrNop(logger).With(zap.String("service", service)),
		getTries: defaultGetTries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// get fetches path and decodes the body into out. Transport
// failures and 5xx responses are retried with exponential backoff.
func (c *restClient) get(ctx context.Context, path string, out any) error {
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		_, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, apperr.ErrServiceUnavailable) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		c.logger.Debug("retrying request", zap.String("path", path), zap.Error(err))
		return nil, err
	}, backoff.WithBackOff(c.backoff()), backoff.WithMaxTries(c.getTries))
	if err != nil {
		return apperr.FromContext(c.service, unwrapPermanent(err))
	}
	if err := c.decode(body, out); err != nil {
		return apperr.Unavailable(c.service, fmt.Errorf("failed to decode %s response: %w", c.service, err))
	}
	return nil
}

// post sends body once. When out is nil or the response body is empty the
// response is not decoded.
func (c *restClient) post(ctx context.Context, path string, in, out any) (int, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return status, err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return status, nil
	}
	if err := c.decode(body, out); err != nil {
		return status, apperr.Unavailable(c.service, fmt.Errorf("failed to decode %s response: %w", c.service, err))
	}
	return status, nil
}

func (c *restClient) do(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode %s request: %w", c.service, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, apperr.Unavailable(c.service, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authValue != "" {
		req.Header.Set(c.authHeader, c.authValue)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, apperr.Unavailable(c.service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, apperr.Unavailable(c.service, err)
	}

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, body, apperr.NewUpstreamError(c.service, resp.StatusCode, upstreamMessage(resp.StatusCode, body))
	}
	return resp.StatusCode, body, nil
}

// upstreamMessage keeps the collaborator's body as the error text. An empty
// body falls back to the status line.
func upstreamMessage(status int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return msg
}

func (c *restClient) decode(body []byte, out any) error {
	if c.lenient {
		return json.Unmarshal(body, out)
	}
	return decodeStrict(body, out)
}

// decodeStrict decodes exactly one JSON value and rejects unknown fields.
func decodeStrict(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
