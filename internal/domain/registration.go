package domain

import "time"

const (
	// CPFLength is the number of digits in a canonical national ID.
	CPFLength = 11

	// MaxNameLength and MaxEmailLength match the VARCHAR sizes of their
	// columns, counted in characters.
	MaxNameLength  = 150
	MaxEmailLength = 180

	// MaxDescriptionLength caps the optional description, counted in characters.
	MaxDescriptionLength = 1000
)

// PersonRegistration is a single registered person as stored in person_registrations.
// ID and CreatedAt are assigned once on creation and never change afterwards.
type PersonRegistration struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	BirthDate   Date      `json:"birthDate" db:"birth_date"`
	CPF         string    `json:"cpf" db:"cpf"`
	Email       string    `json:"email" db:"email"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// HasDescription reports whether the optional description is present.
func (p PersonRegistration) HasDescription() bool {
	return p.Description != nil
}
