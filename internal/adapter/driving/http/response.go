package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
)

// Error categories returned in the "error" field of error responses.
const (
	categoryValidation      = "ValidationError"
	categoryUnauthorized    = "Unauthorized"
	categoryForbidden       = "Forbidden"
	categoryNotFound        = "MovieNotFound"
	categoryAlreadyExists   = "MovieAlreadyExists"
	categoryPayloadTooLarge = "PayloadTooLarge"
	categoryInternal        = "InternalServerError"
)

const (
	messageInternal      = "An internal error occurred"
	messageAlreadyExists = "This movie is already in the schedule"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"InternalServerError","message":"An internal error occurred"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code, category and message.
func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, ErrorResponse{Error: category, Message: message})
}

// writeErrorDetails is writeError with a details object.
func writeErrorDetails(w http.ResponseWriter, status int, category, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: category, Message: message, Details: details})
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// GenreResponse is the JSON representation of a catalog genre.
type GenreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieResponse is the JSON representation of a schedule entry.
type MovieResponse struct {
	CatalogID      int64           `json:"catalogId"`
	Status         string          `json:"status"`
	DiscussionDate string          `json:"discussionDate"`
	Title          string          `json:"title"`
	OriginalTitle  string          `json:"originalTitle,omitempty"`
	Synopsis       string          `json:"synopsis"`
	PosterPath     string          `json:"posterPath,omitempty"`
	BackdropPath   string          `json:"backdropPath,omitempty"`
	ReleaseDate    string          `json:"releaseDate,omitempty"`
	RuntimeMinutes *int            `json:"runtimeMinutes,omitempty"`
	Genres         []GenreResponse `json:"genres,omitempty"`
	RatingAverage  *float64        `json:"ratingAverage,omitempty"`
	RatingCount    *int            `json:"ratingCount,omitempty"`
	AddedBy        string          `json:"addedBy,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	NotesHTML      string          `json:"notesHtml,omitempty"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
}

// ScheduleResponse is the body of GET /movies.
type ScheduleResponse struct {
	Movies []MovieResponse `json:"movies"`
	Count  int             `json:"count"`
}

// AddMovieResponse is the body of a successful POST /movies.
type AddMovieResponse struct {
	Success bool          `json:"success"`
	Movie   MovieResponse `json:"movie"`
	Message string        `json:"message"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// AddMovieRequest is the JSON body for POST /movies. CatalogID is kept raw so
// strings and fractions can be rejected rather than coerced.
type AddMovieRequest struct {
	CatalogID      json.RawMessage `json:"catalogId"`
	DiscussionDate string          `json:"discussionDate"`
	Status         *string         `json:"status"`
	Notes          *string         `json:"notes"`
}

// toMovieResponse converts a domain ScheduleEntry to its JSON response representation.
func toMovieResponse(e model.ScheduleEntry) MovieResponse {
	resp := MovieResponse{
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
		NotesHTML:      renderNotes(e.Notes),
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if len(e.Genres) > 0 {
		resp.Genres = make([]GenreResponse, 0, len(e.Genres))
		for _, g := range e.Genres {
			resp.Genres = append(resp.Genres, GenreResponse{ID: g.ID, Name: g.Name})
		}
	}

	return resp
}
