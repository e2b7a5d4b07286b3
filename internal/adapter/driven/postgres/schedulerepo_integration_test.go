//go:build integration

package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// setupTestRepo connects to MOVIECLUB_TEST_POSTGRES_DSN, migrates, and empties
// the schedule table. Tests are skipped when the variable is unset.
func setupTestRepo(t *testing.T) *ScheduleRepo {
	t.Helper()

	dsn := os.Getenv("MOVIECLUB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MOVIECLUB_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db, slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err = db.ExecContext(ctx, `TRUNCATE schedule_entries`)
	require.NoError(t, err)

	return NewScheduleRepo(db)
}

func pgEntry(id int64, date string, status model.EntryStatus) model.ScheduleEntry {
	now := time.Date(2025, 2, 14, 18, 30, 0, 0, time.UTC)
	return model.ScheduleEntry{
		CatalogID:      id,
		Status:         status,
		DiscussionDate: date,
		Title:          "Movie",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestPostgresScheduleRepo_RoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	runtime := 136
	rating := 8.2
	entry := pgEntry(603, "2025-03-01", model.EntryStatusScheduled)
	entry.Title = "The Matrix"
	entry.RuntimeMinutes = &runtime
	entry.RatingAverage = &rating
	entry.Genres = []model.Genre{{ID: 28, Name: "Action"}}
	entry.Notes = "Bring popcorn"
	entry.AddedBy = "alice@example.com"

	require.NoError(t, repo.InsertIfAbsent(ctx, entry))

	got, err := repo.GetByCatalogID(ctx, 603)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry, *got)

	missing, err := repo.GetByCatalogID(ctx, 604)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresScheduleRepo_Duplicate(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertIfAbsent(ctx, pgEntry(603, "2025-03-01", model.EntryStatusScheduled)))
	err := repo.InsertIfAbsent(ctx, pgEntry(603, "2025-04-01", model.EntryStatusScheduled))
	assert.ErrorIs(t, err, driven.ErrEntryAlreadyExists)
}

func TestPostgresScheduleRepo_ConcurrentInsertOneWins(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.InsertIfAbsent(ctx, pgEntry(603, "2025-03-01", model.EntryStatusScheduled))
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}

func TestPostgresScheduleRepo_QueryByStatusOrdering(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, e := range []model.ScheduleEntry{
		pgEntry(30, "2025-03-15", model.EntryStatusScheduled),
		pgEntry(20, "2025-03-01", model.EntryStatusScheduled),
		pgEntry(10, "2025-03-01", model.EntryStatusScheduled),
		pgEntry(40, "2025-02-01", model.EntryStatusWatched),
	} {
		require.NoError(t, repo.InsertIfAbsent(ctx, e))
	}

	got, err := repo.QueryByStatus(ctx, model.EntryStatusScheduled)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{got[0].CatalogID, got[1].CatalogID, got[2].CatalogID})

	none, err := repo.QueryByStatus(ctx, model.EntryStatusCancelled)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
