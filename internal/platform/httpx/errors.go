// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/mirathi/mirathi/internal/estate"
)

// Sentinel errors for the persistence layer.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrVersionConflict = errors.New("version conflict")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Validation failures carry their field details; invariant violations are
// reported without internals.
func RespondError(w http.ResponseWriter, err error) {
	var verr *estate.ValidationErrors
	switch {
	case errors.As(err, &verr):
		ValidationProblem(w, verr)
	case errors.Is(err, estate.ErrInvariant):
		Problem(w, http.StatusUnprocessableEntity, "Invariant Violation", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrVersionConflict):
		Problem(w, http.StatusConflict, "Version Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
