// Package tokencache caches short-lived device network session tokens.
package tokencache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

// TokenGetter defines a function type for retrieving new tokens.
type TokenGetter interface {
	GetToken(ctx context.Context, key string) (string, error)
}

// Cache provides JWT token caching functionality.
type Cache struct {
	cache       *cache.Cache
	tokenGetter TokenGetter
}

// New creates a new token cache instance.
func New(defaultExpiration, cleanupInterval time.Duration, tokenGetter TokenGetter) *Cache {
	return &Cache{
		cache:       cache.New(defaultExpiration, cleanupInterval),
		tokenGetter: tokenGetter,
	}
}

// GetToken retrieves the session token stored under key. If the token
// is not in the cache or has expired, a new one is fetched.
func (c *Cache) GetToken(ctx context.Context, key string) (string, error) {
	if token, found := c.cache.Get(key); found {
		return token.(string), nil
	}

	token, err := c.tokenGetter.GetToken(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get new token: %w", err)
	}
	expiry, err := extractExpirationFromToken(token)
	if err != nil {
		return "", fmt.Errorf("error extracting expiration from token: %w", err)
	}

	// Expire slightly early so a cached token is never used at the
	// edge of its validity window.
	expiryDuration := time.Until(expiry) - (30 * time.Second)
	if expiryDuration < 0 {
		expiryDuration = 0
	}
	c.cache.Set(key, token, expiryDuration)

	return token, nil
}

// extractExpirationFromToken parses the JWT token and extracts its expiration time.
func extractExpirationFromToken(tokenString string) (time.Time, error) {
	// Parse without verifying the signature; only the expiry claim
	// matters here.
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse JWT token: %w", err)
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("JWT token does not contain an expiration claim: %w", err)
	}

	return exp.Time, nil
}

// NetworkTokenKey returns the cache key for a device network ID.
func NetworkTokenKey(networkID string) string {
	return fmt.Sprintf("network:%s", networkID)
}

// NetworkIDFromKey returns the device network ID from the specified key.
func NetworkIDFromKey(key string) (string, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid key format: %s", key)
	}
	return parts[1], nil
}
