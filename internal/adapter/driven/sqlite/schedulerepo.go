package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ScheduleStore = (*ScheduleRepo)(nil)

// ScheduleRepo is the SQLite implementation of the ScheduleStore port interface.
type ScheduleRepo struct {
	db *DB
}

// NewScheduleRepo creates a new ScheduleRepo backed by the given DB.
func NewScheduleRepo(db *DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

const scheduleColumns = `catalog_id, status, discussion_date, title, original_title, synopsis,
	poster_path, backdrop_path, release_date, runtime_minutes, genres, rating_average,
	rating_count, added_by, notes, created_at, updated_at`

// QueryByStatus returns all entries with the given status ordered by
// discussion date, then catalog ID. Returns an empty slice when none match.
func (r *ScheduleRepo) QueryByStatus(ctx context.Context, status model.EntryStatus) ([]model.ScheduleEntry, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedule_entries
		WHERE status = ? ORDER BY discussion_date ASC, catalog_id ASC`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(status))
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
// which case it returns driven.ErrEntryAlreadyExists. The existence check and
// the write are one statement on the single writer connection.
func (r *ScheduleRepo) InsertIfAbsent(ctx context.Context, entry model.ScheduleEntry) error {
	const query = `INSERT INTO schedule_entries (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_id) DO NOTHING`

	genres, err := marshalGenres(entry.Genres)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, err)
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		entry.CatalogID, string(entry.Status), entry.DiscussionDate,
		entry.Title, entry.OriginalTitle, entry.Synopsis,
		entry.PosterPath, entry.BackdropPath, entry.ReleaseDate,
		nullInt(entry.RuntimeMinutes), genres, nullFloat(entry.RatingAverage),
		nullInt(entry.RatingCount), entry.AddedBy, entry.Notes,
		formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt),
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
	const query = `SELECT ` + scheduleColumns + ` FROM schedule_entries WHERE catalog_id = ?`

	entry, err := scanEntry(r.db.Reader.QueryRowContext(ctx, query, id))
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
	var status, genresJSON, createdAt, updatedAt string
	var runtime, ratingCount sql.NullInt64
	var ratingAverage sql.NullFloat64

	err := s.Scan(
		&e.CatalogID, &status, &e.DiscussionDate, &e.Title, &e.OriginalTitle, &e.Synopsis,
		&e.PosterPath, &e.BackdropPath, &e.ReleaseDate, &runtime, &genresJSON, &ratingAverage,
		&ratingCount, &e.AddedBy, &e.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = model.EntryStatus(status)
	e.RuntimeMinutes = intPtr(runtime)
	e.RatingCount = intPtr(ratingCount)
	if ratingAverage.Valid {
		v := ratingAverage.Float64
		e.RatingAverage = &v
	}

	e.Genres, err = unmarshalGenres(genresJSON)
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	e.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &e, nil
}

type genreRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func marshalGenres(genres []model.Genre) (string, error) {
	rows := make([]genreRow, 0, len(genres))
	for _, g := range genres {
		rows = append(rows, genreRow(g))
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal genres: %w", err)
	}
	return string(b), nil
}

func unmarshalGenres(data string) ([]model.Genre, error) {
	var rows []genreRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshal genres: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	genres := make([]model.Genre, len(rows))
	for i, r := range rows {
		genres[i] = model.Genre(r)
	}
	return genres, nil
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

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
