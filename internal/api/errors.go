package api

import (
	"errors"
	"net/http"

	"github.com/ignite/person-registry/internal/pkg/httputil"
	"github.com/ignite/person-registry/internal/service/registration"
)

const (
	msgNotFound = "Cadastro não encontrado."
	msgConflict = "CPF ou e-mail já cadastrado."
	msgBadID    = "Identificador inválido."
)

// ValidationDetails names the field and rule that rejected a request.
type ValidationDetails struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// writeServiceError maps registration service errors onto HTTP responses.
// Anything unrecognized is a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *registration.ValidationError
	switch {
	case errors.As(err, &ve):
		httputil.ErrorWithCode(w, http.StatusBadRequest, "validation", ve.Message,
			ValidationDetails{Field: ve.Field, Rule: ve.Rule})
	case errors.Is(err, registration.ErrNotFound):
		httputil.NotFound(w, msgNotFound)
	case errors.Is(err, registration.ErrConflict):
		httputil.Conflict(w, msgConflict)
	default:
		httputil.InternalError(w, err)
	}
}
