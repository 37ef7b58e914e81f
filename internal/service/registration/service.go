package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/person-registry/internal/domain"
	"github.com/ignite/person-registry/internal/pkg/logger"
	"github.com/ignite/person-registry/internal/pkg/metrics"
)

// Service implements registration business logic. It is safe for concurrent
// use if the underlying repository and cache are.
type Service struct {
	repo    Repository
	cache   ListCache
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithListCache serves List from cache and invalidates it on every write.
func WithListCache(c ListCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a registration service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates a submission and persists it. createdAt is stamped here,
// in UTC, at microsecond precision so it survives a round trip through the store.
func (s *Service) Create(ctx context.Context, in CreateInput) (_ *domain.PersonRegistration, err error) {
	defer s.observe("create", time.Now(), &err)

	r, err := Normalize(in)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	s.metrics.IncrementCreated()
	s.invalidate(ctx)
	logger.Info("registration created", "id", r.ID, "email", r.Email, "cpf", r.CPF, "has_description", r.HasDescription())
	return r, nil
}

// List returns every registration, most recent first.
func (s *Service) List(ctx context.Context) (_ []domain.PersonRegistration, err error) {
	defer s.observe("list", time.Now(), &err)

	// Set needs the generation read before the query; without one, skip it.
	var gen uint64
	cacheable := false
	if s.cache != nil {
		items, g, ok, cerr := s.cache.Get(ctx)
		switch {
		case cerr != nil:
			s.metrics.IncrementCacheLookup("error")
			logger.Warn("registration list cache read failed", "error", cerr)
		case ok:
			s.metrics.IncrementCacheLookup("hit")
			return items, nil
		default:
			s.metrics.IncrementCacheLookup("miss")
			gen, cacheable = g, true
		}
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if cerr := s.cache.Set(ctx, gen, items); cerr != nil {
			logger.Warn("registration list cache write failed", "error", cerr)
		}
	}
	return items, nil
}

// Get returns a single registration.
func (s *Service) Get(ctx context.Context, id int64) (_ *domain.PersonRegistration, err error) {
	defer s.observe("get", time.Now(), &err)
	return s.repo.Get(ctx, id)
}

// Update merges a partial update into the stored registration, validates the
// result, writes it and returns the row as re-read from the store. A row that
// disappears between the read and the write yields ErrNotFound.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (_ *domain.PersonRegistration, err error) {
	defer s.observe("update", time.Now(), &err)

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(*existing, in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Info("registration updated", "id", id, "has_description", updated.HasDescription())
	return updated, nil
}

// Delete removes a registration. Returns ErrNotFound if nothing was removed.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	defer s.observe("delete", time.Now(), &err)

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}

	s.metrics.IncrementDeleted()
	s.invalidate(ctx)
	logger.Info("registration deleted", "id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("registration list cache invalidation failed", "error", err)
	}
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	err := *errp
	outcome := Outcome(err)
	switch outcome {
	case "conflict":
		s.metrics.IncrementConflict()
	case "validation":
		var ve *ValidationError
		if errors.As(err, &ve) {
			s.metrics.IncrementValidationFailure(ve.Field)
		}
	case "error":
		logger.Error(fmt.Sprintf("registration %s failed", op), "error", err)
	}
	s.metrics.ObserveOperation(op, outcome, start)
}

// Outcome classifies err into the label used for metrics and logs:
// ok, validation, conflict, not_found or error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
