// internal/app/features/errors/errors.go
//
// Package errors writes JSON error responses and maps domain errors to
// HTTP status codes. Every feature handler reports failures through it so
// the same error always produces the same status.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/taskboard/internal/app/policy/commentpolicy"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Body{Error: msg})
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// statusError pins an HTTP status to an error a store returned.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// WithStatus marks err as a client error answered with status and err's
// message. A nil err stays nil.
func WithStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return &statusError{status: status, err: err}
}

// NotFound is WithStatus(404, err).
func NotFound(err error) error { return WithStatus(http.StatusNotFound, err) }

// BadRequest is WithStatus(400, err).
func BadRequest(err error) error { return WithStatus(http.StatusBadRequest, err) }

// Conflict is WithStatus(409, err).
func Conflict(err error) error { return WithStatus(http.StatusConflict, err) }

// StatusFor maps err to an HTTP status. Anything unrecognized is a 500.
func StatusFor(err error) int {
	var se *statusError
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.As(err, &se):
		return se.status
	case stderrors.Is(err, authz.ErrAlreadyMember):
		return http.StatusConflict
	case stderrors.Is(err, authz.ErrInviteInvalid),
		stderrors.Is(err, authz.ErrInviteExpired),
		stderrors.Is(err, authz.ErrInviteExhausted),
		stderrors.Is(err, memberpolicy.ErrPrivilegedTarget):
		return http.StatusBadRequest
	case authz.IsDenial(err), stderrors.Is(err, commentpolicy.ErrNotAuthor):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
