// Package application contains use-case orchestration services.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// defaultFetchTimeout bounds one upstream secret fetch. The fetch outlives the
// request that started it, so it needs its own deadline.
const defaultFetchTimeout = 10 * time.Second

// SecretCache resolves the catalog credential from a SecretStore once and
// serves it from memory for the rest of the process lifetime. A SecretCache is
// owned by the composition root; each new process starts with an empty cache.
//
// Concurrent first calls share a single upstream fetch. Failed fetches are not
// cached, so the next call retries the store.
type SecretCache struct {
	store   driven.SecretStore
	name    string
	jsonKey string
	logger  *slog.Logger

	fetchTimeout time.Duration

	flight  singleflight.Group
	mu      sync.RWMutex
	value   string
	fetches atomic.Int64
}

// NewSecretCache creates a cache for the secret stored under name. When the
// stored payload is a JSON object, the secret is read from jsonKey.
func NewSecretCache(store driven.SecretStore, name, jsonKey string, logger *slog.Logger) *SecretCache {
	return &SecretCache{
		store:   store,
		name:    name,
		jsonKey: jsonKey,
		logger:  logger,

		fetchTimeout: defaultFetchTimeout,
	}
}

// Get returns the cached credential, fetching it from the store on first use.
// Errors wrap ErrCredentialUnavailable.
//
// The shared fetch is detached from the caller that started it, so one caller
// giving up does not fail the others. Each caller still stops waiting when its
// own ctx is done.
func (c *SecretCache) Get(ctx context.Context) (string, error) {
	if v := c.cached(); v != "" {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(c.name, func() (any, error) {
		return c.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("wait for secret %q: %w: %w", c.name, ErrCredentialUnavailable, ctx.Err())
	}
}

func (c *SecretCache) fetch(ctx context.Context) (string, error) {
	// A flight that finished between our read and DoChan already filled the cache.
	if v := c.cached(); v != "" {
		return v, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	n := c.fetches.Add(1)
	raw, err := c.store.Get(ctx, c.name)
	if err != nil {
		c.logger.Warn("catalog credential fetch failed", "secret", c.name, "fetches", n, "error", err)
		return "", fmt.Errorf("fetch secret %q: %w: %w", c.name, ErrCredentialUnavailable, err)
	}

	secret, err := resolveSecret(raw, c.jsonKey)
	if err != nil {
		c.logger.Warn("catalog credential unusable", "secret", c.name, "fetches", n, "error", err)
		return "", fmt.Errorf("resolve secret %q: %w: %w", c.name, ErrCredentialUnavailable, err)
	}

	c.mu.Lock()
	c.value = secret
	c.mu.Unlock()

	c.logger.Info("catalog credential cached", "secret", c.name, "length", len(secret), "fetches", n)
	return secret, nil
}

// Fetches returns how many times the upstream store has been queried. The
// same count is logged with every fetch outcome.
func (c *SecretCache) Fetches() int64 {
	return c.fetches.Load()
}

func (c *SecretCache) cached() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// resolveSecret accepts either a bare secret or a JSON object holding the
// secret as a string under key.
func resolveSecret(raw, key string) (string, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return "", errors.New("secret is empty")
	}

	if !strings.HasPrefix(payload, "{") {
		return payload, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return "", fmt.Errorf("decode secret payload: %w", err)
	}

	v, ok := obj[key].(string)
	if !ok {
		return "", fmt.Errorf("secret payload has no string field %q", key)
	}

	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("secret payload field %q is empty", key)
	}

	return v, nil
}
