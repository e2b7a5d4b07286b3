package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
)

// Sentinel errors returned by CatalogClient implementations.
var (
	// ErrCatalogNotFound indicates the catalog has no movie with the requested ID.
	ErrCatalogNotFound = errors.New("catalog record not found")

	// ErrCatalogUnavailable covers every other catalog failure: transport errors,
	// timeouts, unexpected status codes and malformed payloads.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// CatalogClient defines the driven port for the external movie catalog.
// Implementations do not retry.
type CatalogClient interface {
	FetchByID(ctx context.Context, id int64, credential string) (*model.CatalogRecord, error)
}
