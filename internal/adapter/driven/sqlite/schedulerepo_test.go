package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

func testEntry(id int64, date string, status model.EntryStatus) model.ScheduleEntry {
	now := time.Date(2025, 2, 14, 18, 30, 0, 0, time.UTC)
	return model.ScheduleEntry{
		CatalogID:      id,
		Status:         status,
		DiscussionDate: date,
		Title:          fmt.Sprintf("Movie %d", id),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestScheduleRepo_InsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	runtime := 136
	rating := 8.2
	votes := 25000
	entry := model.ScheduleEntry{
		CatalogID:      603,
		Status:         model.EntryStatusScheduled,
		DiscussionDate: "2025-03-01",
		Title:          "The Matrix",
		OriginalTitle:  "The Matrix",
		Synopsis:       "A hacker learns the truth.",
		PosterPath:     "/poster.jpg",
		BackdropPath:   "/backdrop.jpg",
		ReleaseDate:    "1999-03-30",
		RuntimeMinutes: &runtime,
		Genres:         []model.Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
		RatingAverage:  &rating,
		RatingCount:    &votes,
		AddedBy:        "alice@example.com",
		Notes:          "Bring popcorn",
		CreatedAt:      time.Date(2025, 2, 14, 18, 30, 0, 123000000, time.UTC),
		UpdatedAt:      time.Date(2025, 2, 14, 18, 30, 0, 123000000, time.UTC),
	}

	require.NoError(t, repo.InsertIfAbsent(ctx, entry))

	got, err := repo.GetByCatalogID(ctx, 603)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry, *got)
}

func TestScheduleRepo_OptionalFieldsRoundTripAsAbsent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertIfAbsent(ctx, testEntry(1, "2025-03-01", model.EntryStatusScheduled)))

	got, err := repo.GetByCatalogID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.RuntimeMinutes)
	assert.Nil(t, got.RatingAverage)
	assert.Nil(t, got.RatingCount)
	assert.Nil(t, got.Genres)
	assert.Empty(t, got.Notes)
}

func TestScheduleRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)

	got, err := repo.GetByCatalogID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScheduleRepo_InsertDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	first := testEntry(603, "2025-03-01", model.EntryStatusScheduled)
	require.NoError(t, repo.InsertIfAbsent(ctx, first))

	second := testEntry(603, "2025-04-01", model.EntryStatusWatched)
	second.Title = "Overwritten?"
	err := repo.InsertIfAbsent(ctx, second)
	require.ErrorIs(t, err, driven.ErrEntryAlreadyExists)

	got, err := repo.GetByCatalogID(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", got.DiscussionDate)
	assert.Equal(t, "Movie 603", got.Title)
}

func TestScheduleRepo_ConcurrentInsertOneWins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.InsertIfAbsent(ctx, testEntry(603, "2025-03-01", model.EntryStatusScheduled))
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, driven.ErrEntryAlreadyExists)
	}
	assert.Equal(t, 1, ok)
}

func TestScheduleRepo_RejectsInvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)

	err := repo.InsertIfAbsent(context.Background(), testEntry(1, "2025-03-01", model.EntryStatus("pending")))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, driven.ErrEntryAlreadyExists)
}

func TestScheduleRepo_QueryByStatusOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	for _, e := range []model.ScheduleEntry{
		testEntry(30, "2025-03-15", model.EntryStatusScheduled),
		testEntry(20, "2025-03-01", model.EntryStatusScheduled),
		testEntry(10, "2025-03-01", model.EntryStatusScheduled),
		testEntry(40, "2025-02-01", model.EntryStatusWatched),
		testEntry(50, "2025-01-01", model.EntryStatusCancelled),
	} {
		require.NoError(t, repo.InsertIfAbsent(ctx, e))
	}

	got, err := repo.QueryByStatus(ctx, model.EntryStatusScheduled)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(10), got[0].CatalogID)
	assert.Equal(t, int64(20), got[1].CatalogID)
	assert.Equal(t, int64(30), got[2].CatalogID)

	watched, err := repo.QueryByStatus(ctx, model.EntryStatusWatched)
	require.NoError(t, err)
	require.Len(t, watched, 1)
	assert.Equal(t, int64(40), watched[0].CatalogID)
}

func TestScheduleRepo_QueryByStatusEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)

	got, err := repo.QueryByStatus(context.Background(), model.EntryStatusScheduled)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
