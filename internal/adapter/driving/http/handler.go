// Package httphandler is the HTTP driving adapter serving the schedule API.
package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/movieclub/internal/application"
	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	schedule *application.ScheduleService
	store    driven.ScheduleStore
	verifier *IdentityVerifier
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. store is only
// read, to describe the existing entry when an add conflicts.
func NewHandler(
	schedule *application.ScheduleService,
	store driven.ScheduleStore,
	verifier *IdentityVerifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		schedule: schedule,
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging, recovery and body limit middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /movies", h.ListMovies)
	mux.HandleFunc("POST /movies", h.requireIdentity(h.AddMovie))
	mux.HandleFunc("GET /health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := bodyLimitMiddleware(maxBodyBytes, mux)
	wrapped = recoveryMiddleware(logger, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListMovies returns the scheduled movies in discussion order.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	entries, err := h.schedule.GetSchedule(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	movies := make([]MovieResponse, 0, len(entries))
	for _, e := range entries {
		movies = append(movies, toMovieResponse(e))
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{Movies: movies, Count: len(movies)})
}

// AddMovie adds a movie to the schedule on behalf of the authenticated member.
func (h *Handler) AddMovie(w http.ResponseWriter, r *http.Request) {
	var req AddMovieRequest
	if err := decodeBody(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, categoryPayloadTooLarge,
				fmt.Sprintf("Request body must be %d bytes or fewer", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, categoryValidation, "Invalid request body")
		return
	}

	catalogID, err := parseCatalogID(req.CatalogID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	in := application.AddMovieInput{
		CatalogID:      catalogID,
		DiscussionDate: req.DiscussionDate,
	}
	if req.Status != nil {
		// A present status must name a real one; only an absent field defaults.
		if *req.Status == "" {
			h.writeServiceError(w, r, application.NewValidationError("status", "status must be one of: scheduled, watched"))
			return
		}
		in.Status = model.EntryStatus(*req.Status)
	}
	if req.Notes != nil {
		in.Notes = *req.Notes
	}
	in.AddedBy, _ = IdentityFromContext(r.Context())

	entry, err := h.schedule.AddMovie(r.Context(), in)
	if err != nil {
		if errors.Is(err, application.ErrMovieAlreadyExists) {
			writeErrorDetails(w, http.StatusConflict, categoryAlreadyExists,
				messageAlreadyExists, h.conflictDetails(r, catalogID))
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AddMovieResponse{
		Success: true,
		Movie:   toMovieResponse(*entry),
		Message: "Movie added to schedule",
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeBody decodes exactly one JSON value from body into v. Anything after
// that value other than whitespace is an error.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}

	var extra json.RawMessage
	err := dec.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return errors.New("unexpected data after JSON body")
}

// parseCatalogID accepts only a JSON integer. Strings, fractions, exponents
// and null are rejected.
func parseCatalogID(raw json.RawMessage) (int64, error) {
	invalid := application.NewValidationError("catalogId", "catalogId must be a positive integer")

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, invalid
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, invalid
	}

	n, ok := v.(json.Number)
	if !ok {
		return 0, invalid
	}
	id, err := n.Int64()
	if err != nil {
		return 0, invalid
	}
	return id, nil
}

// writeServiceError maps application and port errors to HTTP responses.
// Internal details are logged, never returned to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		var details map[string]any
		if verr.Field != "" {
			details = map[string]any{"field": verr.Field}
		}
		writeErrorDetails(w, http.StatusBadRequest, categoryValidation, verr.Reason, details)

	case errors.Is(err, driven.ErrCatalogNotFound):
		writeError(w, http.StatusNotFound, categoryNotFound, "Movie not found in catalog")

	case errors.Is(err, application.ErrMovieAlreadyExists):
		writeError(w, http.StatusConflict, categoryAlreadyExists, messageAlreadyExists)

	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, categoryInternal, messageInternal)
	}
}

// conflictDetails describes the stored entry that blocked an add, or returns
// nil when it cannot be read.
func (h *Handler) conflictDetails(r *http.Request, id int64) map[string]any {
	if h.store == nil {
		return nil
	}
	existing, err := h.store.GetByCatalogID(r.Context(), id)
	if err != nil || existing == nil {
		return nil
	}
	return map[string]any{
		"catalogId":      existing.CatalogID,
		"status":         string(existing.Status),
		"discussionDate": existing.DiscussionDate,
	}
}
