package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TokenKey is the well-known name the auth token is stored under.
const TokenKey = "authToken"

const tokenTTL = 7 * 24 * time.Hour

// TokenStore persists one visitor's auth token.
type TokenStore struct {
	c   *Client
	key string
}

func (c *Client) TokenStore(visitorID string) *TokenStore {
	return &TokenStore{
		c:   c,
		key: fmt.Sprintf("session:%s:%s", visitorID, TokenKey),
	}
}

// Load returns "" when no token is stored.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	data, err := s.c.Get(ctx, s.key)
	if errors.Is(err, ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	return s.c.Set(ctx, s.key, []byte(token), tokenTTL)
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.c.Delete(ctx, s.key)
}
