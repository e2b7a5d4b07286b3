package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ScheduleStore = (*ScheduleRepo)(nil)

// ScheduleRepo is the PostgreSQL implementation of the ScheduleStore port interface.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo creates a new ScheduleRepo backed by the given pool.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

const selectColumns = `catalog_id, status, to_char(discussion_date, 'YYYY-MM-DD'), title,
	original_title, synopsis, poster_path, backdrop_path, release_date, runtime_minutes,
	genres::text, rating_average, rating_count, added_by, notes, created_at, updated_at`

// QueryByStatus returns all entries with the given status ordered by
// discussion date, then catalog ID. Returns an empty slice when none match.
func (r *ScheduleRepo) QueryByStatus(ctx context.Context, status model.EntryStatus) ([]model.ScheduleEntry, error) {
	const query = `SELECT ` + selectColumns + ` FROM schedule_entries
		WHERE status = $1 ORDER BY discussion_date ASC, catalog_id ASC`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query entries by status %s: %w", status, err)
	}
	defer rows.Close()

	entries := []model.ScheduleEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule entries: %w", err)
	}

	return entries, nil
}

// InsertIfAbsent writes entry unless its catalog ID is already stored, in
// which case it returns driven.ErrEntryAlreadyExists.
func (r *ScheduleRepo) InsertIfAbsent(ctx context.Context, entry model.ScheduleEntry) error {
	const query = `INSERT INTO schedule_entries (catalog_id, status, discussion_date, title,
			original_title, synopsis, poster_path, backdrop_path, release_date, runtime_minutes,
			genres, rating_average, rating_count, added_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (catalog_id) DO NOTHING`

	genres, err := marshalGenres(entry.Genres)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, err)
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.CatalogID, string(entry.Status), entry.DiscussionDate,
		entry.Title, entry.OriginalTitle, entry.Synopsis,
		entry.PosterPath, entry.BackdropPath, entry.ReleaseDate,
		nullInt(entry.RuntimeMinutes), genres, nullFloat(entry.RatingAverage),
		nullInt(entry.RatingCount), entry.AddedBy, entry.Notes,
		entry.CreatedAt.UTC(), entry.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, driven.ErrEntryAlreadyExists)
	}

	return nil
}

// GetByCatalogID returns the entry with the given catalog ID, or nil, nil if absent.
func (r *ScheduleRepo) GetByCatalogID(ctx context.Context, id int64) (*model.ScheduleEntry, error) {
	const query = `SELECT ` + selectColumns + ` FROM schedule_entries WHERE catalog_id = $1`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}

	return entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*model.ScheduleEntry, error) {
	var e model.ScheduleEntry
	var status, genresJSON string
	var runtime, ratingCount sql.NullInt64
	var ratingAverage sql.NullFloat64

	err := s.Scan(
		&e.CatalogID, &status, &e.DiscussionDate, &e.Title, &e.OriginalTitle, &e.Synopsis,
		&e.PosterPath, &e.BackdropPath, &e.ReleaseDate, &runtime, &genresJSON, &ratingAverage,
		&ratingCount, &e.AddedBy, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = model.EntryStatus(status)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if runtime.Valid {
		v := int(runtime.Int64)
		e.RuntimeMinutes = &v
	}
	if ratingCount.Valid {
		v := int(ratingCount.Int64)
		e.RatingCount = &v
	}
	if ratingAverage.Valid {
		v := ratingAverage.Float64
		e.RatingAverage = &v
	}

	var genres []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(genresJSON), &genres); err != nil {
		return nil, fmt.Errorf("unmarshal genres: %w", err)
	}
	for _, g := range genres {
		e.Genres = append(e.Genres, model.Genre{ID: g.ID, Name: g.Name})
	}

	return &e, nil
}

func marshalGenres(genres []model.Genre) (string, error) {
	type genreJSON struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	out := make([]genreJSON, 0, len(genres))
	for _, g := range genres {
		out = append(out, genreJSON{ID: g.ID, Name: g.Name})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal genres: %w", err)
	}
	return string(b), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
