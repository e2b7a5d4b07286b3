// Package envsecret serves secrets from environment variables. It is the
// fallback secret source when no encrypted credential store is configured.
package envsecret

import (
	"context"
	"os"

	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*Store)(nil)

// Store maps secret names to environment variables. Variables are read on
// every Get, so rotation takes effect for any cache that has not yet resolved.
type Store struct {
	vars   map[string]string
	lookup func(string) (string, bool)
}

// New creates a Store where each key of vars is a secret name and each value is
// the environment variable holding it.
func New(vars map[string]string) *Store {
	return &Store{vars: vars, lookup: os.LookupEnv}
}

// Get returns the raw value for name, or ("", nil) if name is unmapped or the
// variable is unset.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	envVar, ok := s.vars[name]
	if !ok {
		return "", nil
	}

	v, _ := s.lookup(envVar)
	return v, nil
}
