package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// defaultEnrichConcurrency bounds concurrent catalog calls when none is configured.
const defaultEnrichConcurrency = 8

// CredentialSource supplies the catalog credential. SecretCache implements it.
type CredentialSource interface {
	Get(ctx context.Context) (string, error)
}

// AddMovieInput carries a validated-at-the-edge add request into the service.
// An empty Status means "use the default".
type AddMovieInput struct {
	CatalogID      int64
	DiscussionDate string
	Status         model.EntryStatus
	Notes          string
	AddedBy        string
}

// Validate checks the input against the schedule entry invariants.
func (in AddMovieInput) Validate() error {
	if in.CatalogID <= 0 {
		return NewValidationError("catalogId", "catalogId must be a positive integer")
	}
	if _, err := model.ParseDiscussionDate(in.DiscussionDate); err != nil {
		return NewValidationError("discussionDate", "discussionDate must be a valid date in YYYY-MM-DD format")
	}
	if in.Status != "" && !in.Status.Submittable() {
		return NewValidationError("status", "status must be one of: scheduled, watched")
	}
	if model.NotesLength(in.Notes) > model.MaxNotesLength {
		return NewValidationError("notes", fmt.Sprintf("notes must be %d characters or fewer", model.MaxNotesLength))
	}
	return nil
}

// ScheduleOption configures a ScheduleService.
type ScheduleOption func(*ScheduleService)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) ScheduleOption {
	return func(s *ScheduleService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEnrichConcurrency sets how many catalog lookups GetSchedule runs at once.
func WithEnrichConcurrency(n int) ScheduleOption {
	return func(s *ScheduleService) {
		if n > 0 {
			s.enrichLimit = n
		}
	}
}

// ScheduleService implements the add-movie and get-schedule use cases. It
// depends only on port interfaces.
type ScheduleService struct {
	store       driven.ScheduleStore
	catalog     driven.CatalogClient
	credentials CredentialSource
	logger      *slog.Logger
	enrichLimit int
	now         func() time.Time
}

// NewScheduleService creates a ScheduleService with the required dependencies.
func NewScheduleService(
	store driven.ScheduleStore,
	catalog driven.CatalogClient,
	credentials CredentialSource,
	logger *slog.Logger,
	opts ...ScheduleOption,
) *ScheduleService {
	s := &ScheduleService{
		store:       store,
		catalog:     catalog,
		credentials: credentials,
		logger:      logger,
		enrichLimit: defaultEnrichConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMovie validates in, resolves catalog metadata and persists a new entry.
//
// Returns *ValidationError for bad input, an error wrapping
// ErrCredentialUnavailable, driven.ErrCatalogNotFound or
// driven.ErrCatalogUnavailable for upstream trouble, and ErrMovieAlreadyExists
// when the catalog ID is already scheduled. Nothing is written on any error path.
func (s *ScheduleService) AddMovie(ctx context.Context, in AddMovieInput) (*model.ScheduleEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	credential, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.catalog.FetchByID(ctx, in.CatalogID, credential)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog id %d: %w", in.CatalogID, err)
	}

	status := in.Status
	if status == "" {
		status = model.EntryStatusScheduled
	}

	now := s.now().UTC()
	entry := model.ScheduleEntry{
		CatalogID:      in.CatalogID,
		Status:         status,
		DiscussionDate: in.DiscussionDate,
		AddedBy:        in.AddedBy,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry.ApplyCatalog(*rec)

	if err := s.store.InsertIfAbsent(ctx, entry); err != nil {
		if errors.Is(err, driven.ErrEntryAlreadyExists) {
			return nil, fmt.Errorf("catalog id %d: %w", in.CatalogID, ErrMovieAlreadyExists)
		}
		return nil, fmt.Errorf("insert schedule entry %d: %w", in.CatalogID, err)
	}

	s.logger.Info("movie added to schedule",
		"catalog_id", entry.CatalogID,
		"title", entry.Title,
		"discussion_date", entry.DiscussionDate,
		"added_by", entry.AddedBy,
	)

	return &entry, nil
}

// GetSchedule returns the entries still pending discussion, ordered by
// discussion date, each refreshed with current catalog metadata.
//
// A failed credential fetch or store query fails the whole call. A failed
// enrichment only affects its own entry, which is returned with its stored
// fields.
func (s *ScheduleService) GetSchedule(ctx context.Context) ([]model.ScheduleEntry, error) {
	credential, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.QueryByStatus(ctx, model.EntryStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("query scheduled entries: %w", err)
	}

	// Each task writes only its own slot, so order matches the store regardless
	// of completion order.
	results := make([]model.ScheduleEntry, len(entries))

	var g errgroup.Group
	g.SetLimit(s.enrichLimit)
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = s.enrich(ctx, entry, credential)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// enrich returns entry with fresh catalog fields, or entry unchanged if the
// catalog lookup fails.
func (s *ScheduleService) enrich(ctx context.Context, entry model.ScheduleEntry, credential string) model.ScheduleEntry {
	rec, err := s.catalog.FetchByID(ctx, entry.CatalogID, credential)
	if err != nil {
		s.logger.Warn("catalog enrichment failed, using stored fields",
			"catalog_id", entry.CatalogID,
			"error", err,
		)
		return entry
	}

	entry.ApplyCatalog(*rec)
	return entry
}

// credential fetches the catalog credential, guaranteeing the error is
// classified as ErrCredentialUnavailable.
func (s *ScheduleService) credential(ctx context.Context) (string, error) {
	credential, err := s.credentials.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrCredentialUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrCredentialUnavailable, err)
	}
	return credential, nil
}
