package registration

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registration service layer.
var (
	ErrNotFound = errors.New("registration not found")
	ErrConflict = errors.New("cpf or email already registered")
)

// Validated fields, as reported in ValidationError.Field.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldBirthDate   = "birthDate"
	FieldCPF         = "cpf"
	FieldDescription = "description"
)

// Rules a field can fail, as reported in ValidationError.Rule.
const (
	RuleRequired = "required"
	RuleLength   = "length"
	RuleFormat   = "format"
	RuleMaxLen   = "max_length"
)

// ValidationError reports the first rule an input record violated.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, rule, msg string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Message: msg}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
