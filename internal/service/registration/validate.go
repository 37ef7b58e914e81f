package registration

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ignite/person-registry/internal/domain"
)

// User-facing messages, kept in Portuguese for the existing frontend.
const (
	msgNameRequired      = "Nome é obrigatório."
	msgEmailRequired     = "E-mail é obrigatório."
	msgBirthDateRequired = "Data de nascimento é obrigatória."
	msgCPFLength         = "CPF deve conter 11 dígitos."
	msgEmailInvalid      = "E-mail inválido."
	msgDescriptionTooBig = "Descrição deve ter no máximo 1000 caracteres."
	msgNameTooBig        = "Nome deve ter no máximo 150 caracteres."
	msgEmailTooBig       = "E-mail deve ter no máximo 180 caracteres."
)

// Normalize validates a submission and returns its canonical form.
// Rules run in a fixed order and the first violation is returned:
// name, email presence, birth date, CPF digits, email syntax, description
// length, then the name and email column limits.
// ID and CreatedAt are left for the caller to set.
func Normalize(in CreateInput) (*domain.PersonRegistration, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid(FieldName, RuleRequired, msgNameRequired)
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, invalid(FieldEmail, RuleRequired, msgEmailRequired)
	}

	if in.BirthDate.IsZero() {
		return nil, invalid(FieldBirthDate, RuleRequired, msgBirthDateRequired)
	}

	cpf := SanitizeCPF(in.CPF)
	if len(cpf) != domain.CPFLength {
		return nil, invalid(FieldCPF, RuleLength, msgCPFLength)
	}

	if !IsValidEmail(email) {
		return nil, invalid(FieldEmail, RuleFormat, msgEmailInvalid)
	}

	description := normalizeDescription(in.Description)
	if description != nil && utf8.RuneCountInString(*description) > domain.MaxDescriptionLength {
		return nil, invalid(FieldDescription, RuleMaxLen, msgDescriptionTooBig)
	}

	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return nil, invalid(FieldName, RuleMaxLen, msgNameTooBig)
	}
	if utf8.RuneCountInString(email) > domain.MaxEmailLength {
		return nil, invalid(FieldEmail, RuleMaxLen, msgEmailTooBig)
	}

	return &domain.PersonRegistration{
		Name:        name,
		BirthDate:   in.BirthDate,
		CPF:         cpf,
		Email:       email,
		Description: description,
	}, nil
}

// Merge applies a partial update on top of an existing registration and
// validates the result with the same rules as Normalize. ID and CreatedAt
// are carried over from existing.
func Merge(existing domain.PersonRegistration, in UpdateInput) (*domain.PersonRegistration, error) {
	merged := CreateInput{
		Name:        existing.Name,
		BirthDate:   existing.BirthDate,
		CPF:         existing.CPF,
		Email:       existing.Email,
		Description: existing.Description,
	}
	if in.Name != nil {
		merged.Name = *in.Name
	}
	if in.BirthDate != nil {
		merged.BirthDate = *in.BirthDate
	}
	if in.CPF != nil {
		merged.CPF = *in.CPF
	}
	if in.Email != nil {
		merged.Email = *in.Email
	}
	if in.Description != nil {
		merged.Description = in.Description
	}

	out, err := Normalize(merged)
	if err != nil {
		return nil, err
	}
	out.ID = existing.ID
	out.CreatedAt = existing.CreatedAt
	return out, nil
}

// SanitizeCPF strips every character that is not an ASCII digit.
func SanitizeCPF(cpf string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cpf)
}

// IsValidEmail reports whether s is a bare RFC 5322 address.
// Display-name forms such as "Ana <ana@example.com>" are rejected.
func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
