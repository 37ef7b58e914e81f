package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/person-registry/internal/domain"
	"github.com/ignite/person-registry/internal/pkg/httputil"
	"github.com/ignite/person-registry/internal/service/registration"
)

const maxBodyBytes = 1 << 20

// RegistrationService is the subset of *registration.Service the handlers use.
type RegistrationService interface {
	Create(ctx context.Context, in registration.CreateInput) (*domain.PersonRegistration, error)
	List(ctx context.Context) ([]domain.PersonRegistration, error)
	Get(ctx context.Context, id int64) (*domain.PersonRegistration, error)
	Update(ctx context.Context, id int64, in registration.UpdateInput) (*domain.PersonRegistration, error)
	Delete(ctx context.Context, id int64) error
}

// RegistrationHandlers serves /api/registrations.
type RegistrationHandlers struct {
	svc RegistrationService
}

func NewRegistrationHandlers(svc RegistrationService) *RegistrationHandlers {
	return &RegistrationHandlers{svc: svc}
}

// List handles GET /api/registrations
func (h *RegistrationHandlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, NewRegistrationResponses(items))
}

// Create handles POST /api/registrations
func (h *RegistrationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var in registration.CreateInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if !httputil.Decode(w, r, &in) {
		return
	}

	created, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, fmt.Sprintf("/api/registrations/%d", created.ID), NewRegistrationResponse(*created))
}

// Get handles GET /api/registrations/{id}
func (h *RegistrationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, NewRegistrationResponse(*p))
}

// Update handles PUT /api/registrations/{id}
func (h *RegistrationHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in registration.UpdateInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if !httputil.Decode(w, r, &in) {
		return
	}

	p, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, NewRegistrationResponse(*p))
}

// Delete handles DELETE /api/registrations/{id}
func (h *RegistrationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, msgBadID)
		return 0, false
	}
	return id, true
}
