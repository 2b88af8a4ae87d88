package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/policy/commentpolicy"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusFor(t *testing.T) {
	errBoom := stderrors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not a member", authz.ErrNotAMember, http.StatusForbidden},
		{"no record", authz.ErrNoPermissionRecord, http.StatusForbidden},
		{"not granted", authz.ErrActionNotGranted, http.StatusForbidden},
		{"invalid role", authz.ErrInvalidRoleAssignment, http.StatusForbidden},
		{"insufficient role", authz.ErrInsufficientRole, http.StatusForbidden},
		{"not author", commentpolicy.ErrNotAuthor, http.StatusForbidden},
		{"invite invalid", authz.ErrInviteInvalid, http.StatusBadRequest},
		{"invite expired", authz.ErrInviteExpired, http.StatusBadRequest},
		{"invite exhausted", authz.ErrInviteExhausted, http.StatusBadRequest},
		{"already member", authz.ErrAlreadyMember, http.StatusConflict},
		{"privileged target", memberpolicy.ErrPrivilegedTarget, http.StatusBadRequest},
		{"wrapped denial", fmt.Errorf("update: %w", authz.ErrActionNotGranted), http.StatusForbidden},
		{"not found", uierrors.NotFound(errBoom), http.StatusNotFound},
		{"bad request", uierrors.BadRequest(errBoom), http.StatusBadRequest},
		{"conflict", uierrors.Conflict(errBoom), http.StatusConflict},
		{"unknown", errBoom, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uierrors.StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithStatus_NilStaysNil(t *testing.T) {
	if uierrors.NotFound(nil) != nil {
		t.Error("expected nil")
	}
}

func TestHandle(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	el := uierrors.NewErrorLogger(zap.New(core))

	t.Run("client error shows message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		el.Handle(rec, httptest.NewRequest("GET", "/x", nil), "op", authz.ErrActionNotGranted)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status: got %d, want 403", rec.Code)
		}
		var body uierrors.Body
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != authz.ErrActionNotGranted.Error() {
			t.Errorf("error: got %q", body.Error)
		}
	})

	t.Run("server error is hidden and logged", func(t *testing.T) {
		before := logs.FilterMessage("load task failed").Len()
		rec := httptest.NewRecorder()
		el.Handle(rec, httptest.NewRequest("GET", "/x", nil), "load task", stderrors.New("socket closed"))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status: got %d, want 500", rec.Code)
		}
		var body uierrors.Body
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Error == "socket closed" {
			t.Error("internal error text leaked to client")
		}
		if logs.FilterMessage("load task failed").Len() != before+1 {
			t.Error("expected server error to be logged")
		}
	})
}
