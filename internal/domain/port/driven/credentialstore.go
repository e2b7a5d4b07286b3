package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// MOVIECLUB_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set MOVIECLUB_SECRET_KEY")

// SecretStore is the read side of an upstream secret holder.
type SecretStore interface {
	// Get returns the raw payload stored under name.
	// Returns ("", nil) if no secret exists for that name.
	Get(ctx context.Context, name string) (string, error)
}

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	SecretStore

	// Set stores or replaces the credential for name. Returns
	// ErrEncryptionKeyNotSet if the adapter was constructed without a key.
	Set(ctx context.Context, name, plaintext string) error

	// List returns all stored credentials. Values are decrypted plaintext.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes the credential for name.
	Delete(ctx context.Context, name string) error
}
