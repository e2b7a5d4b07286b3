package model

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// DiscussionDateLayout is the wire and storage layout of a discussion date.
const DiscussionDateLayout = "2006-01-02"

// MaxNotesLength is the maximum number of characters allowed in Notes.
const MaxNotesLength = 1000

// Genre is a catalog genre, kept in catalog order.
type Genre struct {
	ID   int64
	Name string
}

// ScheduleEntry is one movie scheduled for club discussion. CatalogID is the
// unique identity; the catalog fields are a snapshot taken when the movie was added.
type ScheduleEntry struct {
	CatalogID      int64
	Status         EntryStatus
	DiscussionDate string // YYYY-MM-DD

	// Denormalized catalog metadata. Empty strings and nil pointers mean absent.
	Title          string
	OriginalTitle  string
	Synopsis       string
	PosterPath     string
	BackdropPath   string
	ReleaseDate    string
	RuntimeMinutes *int
	Genres         []Genre
	RatingAverage  *float64
	RatingCount    *int

	AddedBy string // Identity claim of the submitter.
	Notes   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyCatalog overwrites the entry's catalog snapshot with rec. Club fields
// (status, discussion date, notes, submitter, timestamps) are left untouched.
func (e *ScheduleEntry) ApplyCatalog(rec CatalogRecord) {
	e.Title = rec.Title
	e.OriginalTitle = rec.OriginalTitle
	e.Synopsis = rec.Synopsis
	e.PosterPath = rec.PosterPath
	e.BackdropPath = rec.BackdropPath
	e.ReleaseDate = rec.ReleaseDate
	e.RuntimeMinutes = rec.RuntimeMinutes
	e.Genres = rec.Genres
	e.RatingAverage = rec.RatingAverage
	e.RatingCount = rec.RatingCount
}

// ParseDiscussionDate parses s as a YYYY-MM-DD calendar date. Dates that match
// the shape but do not exist (2025-02-30) are rejected.
func ParseDiscussionDate(s string) (time.Time, error) {
	if len(s) != len(DiscussionDateLayout) {
		return time.Time{}, fmt.Errorf("discussion date %q: expected YYYY-MM-DD", s)
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if i == 4 || i == 7 {
			if ch != '-' {
				return time.Time{}, fmt.Errorf("discussion date %q: expected YYYY-MM-DD", s)
			}
			continue
		}
		if ch < '0' || ch > '9' {
			return time.Time{}, fmt.Errorf("discussion date %q: expected YYYY-MM-DD", s)
		}
	}

	t, err := time.Parse(DiscussionDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("discussion date %q: not a calendar date", s)
	}
	return t, nil
}

// NotesLength returns the length of notes in characters rather than bytes.
func NotesLength(notes string) int {
	return utf8.RuneCountInString(notes)
}
