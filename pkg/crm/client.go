package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/mohamedelfert/bayut-dubizzle-xml/config"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/httpclient"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/metrics"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/tracing"
)

// tokenResponse is the CRM oauth token endpoint payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Client talks to the CRM token and broker inventory endpoints. Both calls
// retry transport failures and retryable status codes with a fixed delay.
type Client struct {
	http   *httpclient.Client
	cache  *TokenCache
	cfg    *config.Config
	logger ectologger.Logger
}

// NewClient creates a CRM client. The token cache is optional; without it
// every run authenticates from scratch.
func NewClient(http *httpclient.Client, cache *TokenCache, cfg *config.Config, logger ectologger.Logger) *Client {
	return &Client{
		http:   http,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Authenticate obtains a bearer token via the password grant, reusing a cached
// token while it is still valid.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "CRMClient.Authenticate")
	defer span.End()

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, c.cfg.CRMClientID); err == nil {
			c.logger.WithContext(ctx).Debug("Using cached CRM access token")
			return cached.Token, nil
		}
	}

	body := map[string]string{
		"grant_type":    "password",
		"client_id":     c.cfg.CRMClientID,
		"client_secret": c.cfg.CRMClientSecret,
		"username":      c.cfg.CRMUsername,
		"password":      c.cfg.CRMPassword,
	}

	resp, err := c.postWithRetry(ctx, c.cfg.CRMTokenURL, nil, body,
		c.cfg.CRMAuthTimeout, c.cfg.CRMAuthRetries, c.cfg.CRMAuthRetryDelay)
	if err != nil {
		metrics.RecordTokenRefresh("error")
		return "", errors.Wrap(err, "failed to obtain access token")
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		metrics.RecordTokenRefresh("error")
		return "", fmt.Errorf("failed to obtain access token: HTTP %d - Response: %s", resp.StatusCode, string(resp.Body))
	}

	var token tokenResponse
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		metrics.RecordTokenRefresh("error")
		return "", errors.Wrap(err, "failed to decode token response")
	}

	if token.AccessToken == "" {
		metrics.RecordTokenRefresh("error")
		return "", errors.New("access token not found in response")
	}

	metrics.RecordTokenRefresh("success")
	c.logger.WithContext(ctx).Info("CRM access token obtained successfully")

	if c.cache != nil {
		cached := &CachedToken{
			Token:     token.AccessToken,
			TokenType: token.TokenType,
			CreatedAt: time.Now().Unix(),
		}
		if token.ExpiresIn > 0 {
			cached.ExpiresAt = time.Now().Unix() + token.ExpiresIn
		}
		if err := c.cache.Set(ctx, c.cfg.CRMClientID, cached); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("Failed to cache CRM access token")
		}
	}

	return token.AccessToken, nil
}

// FetchInventory calls the broker inventory units index and decodes the JSON
// response. The decoded payload shape varies between CRM versions, so the
// caller probes it for the actual record list.
func (c *Client) FetchInventory(ctx context.Context, accessToken string) (any, error) {
	ctx, span := tracing.StartSpan(ctx, "CRMClient.FetchInventory")
	defer span.End()

	headers := map[string]string{
		"Authorization":  "Bearer " + accessToken,
		"X-localization": c.cfg.CRMLocale,
	}

	resp, err := c.postWithRetry(ctx, c.cfg.CRMInventoryURL, headers, nil,
		c.cfg.CRMFetchTimeout, c.cfg.CRMFetchRetries, c.cfg.CRMFetchRetryDelay)
	if err != nil {
		return nil, errors.Wrap(err, "CRM API request failed")
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, fmt.Errorf("CRM API request failed: HTTP %d - Response: %s", resp.StatusCode, string(resp.Body))
	}

	var payload any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, errors.Wrap(err, "invalid CRM response")
	}

	switch payload.(type) {
	case map[string]any, []any:
	default:
		return nil, fmt.Errorf("invalid CRM response: expected object or array, got %T", payload)
	}

	return payload, nil
}

// postWithRetry issues a POST and retries transport errors and retryable
// status codes up to maxAttempts total attempts with a fixed delay.
func (c *Client) postWithRetry(ctx context.Context, url string, headers map[string]string, body any,
	timeout time.Duration, maxAttempts int, delay time.Duration) (*httpclient.Response, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var resp *httpclient.Response
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, lastErr = c.http.PostJSON(callCtx, url, headers, body)
		cancel()

		if lastErr == nil && !httpclient.IsRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if attempt == maxAttempts {
			break
		}

		if lastErr != nil {
			c.logger.WithContext(ctx).WithError(lastErr).Warnf("CRM request attempt %d/%d failed, retrying in %s", attempt, maxAttempts, delay)
		} else {
			c.logger.WithContext(ctx).Warnf("CRM request attempt %d/%d returned HTTP %d, retrying in %s", attempt, maxAttempts, resp.StatusCode, delay)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return resp, nil
}
