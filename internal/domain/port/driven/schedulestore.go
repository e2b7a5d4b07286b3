// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
)

// ErrEntryAlreadyExists indicates an entry with the same catalog ID is already
// stored. Returned (wrapped) by ScheduleStore.InsertIfAbsent.
var ErrEntryAlreadyExists = errors.New("schedule entry already exists")

// ScheduleStore defines the driven port for schedule entry persistence.
type ScheduleStore interface {
	// QueryByStatus returns entries with the given status ordered by discussion
	// date ascending. Returns an empty slice, not an error, when nothing matches.
	QueryByStatus(ctx context.Context, status model.EntryStatus) ([]model.ScheduleEntry, error)

	// InsertIfAbsent writes entry only if no entry with the same CatalogID exists.
	// The check and the write are a single atomic operation. Returns
	// ErrEntryAlreadyExists if the catalog ID is taken.
	InsertIfAbsent(ctx context.Context, entry model.ScheduleEntry) error

	// GetByCatalogID returns the entry for catalogID, or nil, nil if absent.
	GetByCatalogID(ctx context.Context, catalogID int64) (*model.ScheduleEntry, error)
}
