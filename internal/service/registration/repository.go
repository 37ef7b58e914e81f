package registration

import (
	"context"

	"github.com/ignite/person-registry/internal/domain"
)

// Repository defines the data access contract for person registrations.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a canonical registration and fills in its ID.
	// Returns ErrConflict if the CPF or email is already stored.
	Create(ctx context.Context, r *domain.PersonRegistration) error

	// List returns every registration ordered by created_at DESC.
	List(ctx context.Context) ([]domain.PersonRegistration, error)

	// Get returns a single registration. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id int64) (*domain.PersonRegistration, error)

	// Update overwrites every mutable column of r.ID. Returns ErrNotFound when
	// no row was affected and ErrConflict on a uniqueness violation.
	Update(ctx context.Context, r *domain.PersonRegistration) error

	// Delete removes a registration and reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}

// ListCache holds the most recent List result. Get reports the generation
// the caller must hand back to Set; Set discards the list if a write has
// invalidated that generation in the meantime. Implementations may be
// remote; errors are logged by the service and never fail a request.
type ListCache interface {
	Get(ctx context.Context) (items []domain.PersonRegistration, gen uint64, ok bool, err error)
	Set(ctx context.Context, gen uint64, items []domain.PersonRegistration) error
	Invalidate(ctx context.Context) error
}

// CreateInput holds the fields of a registration submission.
type CreateInput struct {
	Name        string      `json:"name"`
	BirthDate   domain.Date `json:"birthDate"`
	CPF         string      `json:"cpf"`
	Email       string      `json:"email"`
	Description *string     `json:"description"`
}

// UpdateInput holds the fields of a partial update.
// Nil fields (omitted or null in JSON) keep the stored value.
type UpdateInput struct {
	Name        *string      `json:"name"`
	BirthDate   *domain.Date `json:"birthDate"`
	CPF         *string      `json:"cpf"`
	Email       *string      `json:"email"`
	Description *string      `json:"description"`
}
