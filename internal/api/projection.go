package api

import (
	"time"

	"github.com/ignite/person-registry/internal/domain"
)

// RegistrationResponse is the wire form of a stored registration.
type RegistrationResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	BirthDate   string    `json:"birthDate"`
	CPF         string    `json:"cpf"`
	Email       string    `json:"email"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewRegistrationResponse(p domain.PersonRegistration) RegistrationResponse {
	return RegistrationResponse{
		ID:          p.ID,
		Name:        p.Name,
		BirthDate:   p.BirthDate.String(),
		CPF:         p.CPF,
		Email:       p.Email,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.UTC(),
	}
}

func NewRegistrationResponses(items []domain.PersonRegistration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(items))
	for _, p := range items {
		out = append(out, NewRegistrationResponse(p))
	}
	return out
}
