package testutil

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TestSecret is long enough for both the session store and the token issuer.
const TestSecret = "0123456789abcdef0123456789abcdef"

// NewSessionManager returns an insecure-cookie session manager with a
// token issuer attached.
func NewSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(TestSecret, "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(TestSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	sm.SetTokenIssuer(tokens)
	return sm
}

// NewGate returns a membership gate backed by db.
func NewGate(db *mongo.Database) *gates.Gate {
	src := authz.JoinSource(membershipstore.New(db), permissionstore.New(db))
	return gates.New(authz.NewResolver(src), uierrors.NewErrorLogger(zap.NewNop()))
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *ResponseRecorder {
	rec := NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
