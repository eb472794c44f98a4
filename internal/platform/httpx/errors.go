// Package httpx maps domain errors to HTTP responses.
package httpx

import (
	"errors"
	"net/http"

	"github.com/castellan-hq/castellan/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Forbidden outcomes stay generic so the missing permission is not leaked.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	switch {
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrDuplicateEmail):
		FieldProblem(w, map[string]string{"email": shared.UserSafeMessage(err)})
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	case errors.As(err, &vErr):
		FieldProblem(w, vErr.Fields)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
