package redis

import (
	"encoding/json"
	"time"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
)

// storedEntry is the JSON shape of an entry value. It is kept separate from
// the domain model so the stored format does not change with it.
type storedEntry struct {
	CatalogID      int64         `json:"catalog_id"`
	Status         string        `json:"status"`
	DiscussionDate string        `json:"discussion_date"`
	Title          string        `json:"title"`
	OriginalTitle  string        `json:"original_title,omitempty"`
	Synopsis       string        `json:"synopsis,omitempty"`
	PosterPath     string        `json:"poster_path,omitempty"`
	BackdropPath   string        `json:"backdrop_path,omitempty"`
	ReleaseDate    string        `json:"release_date,omitempty"`
	RuntimeMinutes *int          `json:"runtime_minutes,omitempty"`
	Genres         []storedGenre `json:"genres,omitempty"`
	RatingAverage  *float64      `json:"rating_average,omitempty"`
	RatingCount    *int          `json:"rating_count,omitempty"`
	AddedBy        string        `json:"added_by,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type storedGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func encodeEntry(e model.ScheduleEntry) (string, error) {
	s := storedEntry{
		CatalogID:      e.CatalogID,
		Status:         string(e.Status),
		DiscussionDate: e.DiscussionDate,
		Title:          e.Title,
		OriginalTitle:  e.OriginalTitle,
		Synopsis:       e.Synopsis,
		PosterPath:     e.PosterPath,
		BackdropPath:   e.BackdropPath,
		ReleaseDate:    e.ReleaseDate,
		RuntimeMinutes: e.RuntimeMinutes,
		RatingAverage:  e.RatingAverage,
		RatingCount:    e.RatingCount,
		AddedBy:        e.AddedBy,
		Notes:          e.Notes,
		CreatedAt:      e.CreatedAt.UTC(),
		UpdatedAt:      e.UpdatedAt.UTC(),
	}
	for _, g := range e.Genres {
		s.Genres = append(s.Genres, storedGenre{ID: g.ID, Name: g.Name})
	}

	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEntry(raw string) (*model.ScheduleEntry, error) {
	var s storedEntry
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}

	e := &model.ScheduleEntry{
		CatalogID:      s.CatalogID,
		Status:         model.EntryStatus(s.Status),
		DiscussionDate: s.DiscussionDate,
		Title:          s.Title,
		OriginalTitle:  s.OriginalTitle,
		Synopsis:       s.Synopsis,
		PosterPath:     s.PosterPath,
		BackdropPath:   s.BackdropPath,
		ReleaseDate:    s.ReleaseDate,
		RuntimeMinutes: s.RuntimeMinutes,
		RatingAverage:  s.RatingAverage,
		RatingCount:    s.RatingCount,
		AddedBy:        s.AddedBy,
		Notes:          s.Notes,
		CreatedAt:      s.CreatedAt.UTC(),
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
	for _, g := range s.Genres {
		e.Genres = append(e.Genres, model.Genre{ID: g.ID, Name: g.Name})
	}
	return e, nil
}
