package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/redis"
)

const (
	// DefaultTTLSeconds is the cache TTL used when the token endpoint does not
	// report an expiry
	DefaultTTLSeconds = 3600

	// DefaultSkewSeconds is subtracted from the token expiry so a token is
	// refreshed shortly before the CRM rejects it
	DefaultSkewSeconds = 60

	// CacheKeyPrefix is the prefix for CRM token cache keys
	CacheKeyPrefix = "crm:token:"
)

// ErrTokenNotFound is returned when no usable cached token exists
var ErrTokenNotFound = errors.New("cached token not found")

// CachedToken represents a cached CRM access token
type CachedToken struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// IsExpired checks if the token is expired (with skew)
func (t *CachedToken) IsExpired(skewSeconds int) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	now := time.Now().Unix()
	return now >= (t.ExpiresAt - int64(skewSeconds))
}

// TokenCache stores CRM access tokens in Redis so concurrent runs and restarts
// reuse a still-valid token instead of hammering the token endpoint.
type TokenCache struct {
	client *redis.Client
	logger ectologger.Logger
}

func NewTokenCache(client *redis.Client, logger ectologger.Logger) *TokenCache {
	return &TokenCache{
		client: client,
		logger: logger,
	}
}

func (c *TokenCache) Get(ctx context.Context, clientID string) (*CachedToken, error) {
	data, err := c.client.Get(ctx, c.cacheKey(clientID))
	if err != nil {
		return nil, ErrTokenNotFound
	}

	var token CachedToken
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached token: %w", err)
	}

	if token.IsExpired(DefaultSkewSeconds) {
		return nil, ErrTokenNotFound
	}

	return &token, nil
}

func (c *TokenCache) Set(ctx context.Context, clientID string, token *CachedToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	return c.client.Set(ctx, c.cacheKey(clientID), string(data), c.calculateTTL(token))
}

func (c *TokenCache) Invalidate(ctx context.Context, clientID string) error {
	return c.client.Del(ctx, c.cacheKey(clientID))
}

func (c *TokenCache) calculateTTL(token *CachedToken) time.Duration {
	if token.ExpiresAt > 0 {
		remaining := token.ExpiresAt - time.Now().Unix() - int64(DefaultSkewSeconds)
		if remaining > 0 {
			return time.Duration(remaining) * time.Second
		}
	}
	return time.Duration(DefaultTTLSeconds) * time.Second
}

func (c *TokenCache) cacheKey(clientID string) string {
	return CacheKeyPrefix + clientID
}
