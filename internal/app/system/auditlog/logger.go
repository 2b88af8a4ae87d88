// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Email: The address users type to log in

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/taskboard/internal/app/store/audit"
	"github.com/dalemusser/taskboard/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config selects where each category is written.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off".
type Config struct {
	Auth   string // login, logout, registration
	Admin  string // account management by global admins
	Access string // project membership, roles, permissions, invites
}

// Logger writes audit events to MongoDB (via audit.Store) and zap.
// A nil *Logger is a valid no-op, which keeps handler tests simple.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	case audit.CategoryAccess:
		s = l.config.Access
	}
	if s == "" {
		return "all"
	}
	return s
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ProjectID != nil {
		fields = append(fields, zap.String("project_id", event.ProjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's setting.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.setting(event.Category)
	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func base(r *http.Request, category, eventType string) audit.Event {
	e := audit.Event{Category: category, EventType: eventType, Success: true}
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailed records a rejected login. userID is nil when the email
// matched no account.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email, reason string) {
	e := base(r, audit.CategoryAuth, eventType)
	e.Success = false
	e.UserID = userID
	e.FailureReason = reason
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, audit.EventLogout)
	e.UserID = &userID
	l.Log(ctx, e)
}

func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, globalAdmin bool) {
	e := base(r, audit.CategoryAuth, audit.EventUserRegistered)
	e.UserID = &userID
	e.Details = map[string]string{"is_global_admin": strconv.FormatBool(globalAdmin)}
	l.Log(ctx, e)
}

// --- Account administration ---

func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAdmin, audit.EventUserCreated)
	e.ActorID, e.UserID = &actorID, &userID
	l.Log(ctx, e)
}

func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, fieldsChanged string) {
	e := base(r, audit.CategoryAdmin, audit.EventUserUpdated)
	e.ActorID, e.UserID = &actorID, &userID
	e.Details = map[string]string{"fields_changed": fieldsChanged}
	l.Log(ctx, e)
}

func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAdmin, audit.EventUserDeleted)
	e.ActorID, e.UserID = &actorID, &userID
	l.Log(ctx, e)
}

// --- Project access ---

func (l *Logger) access(r *http.Request, eventType string, actorID, projectID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) audit.Event {
	e := base(r, audit.CategoryAccess, eventType)
	e.ActorID, e.ProjectID, e.UserID = &actorID, &projectID, userID
	e.Details = details
	return e
}

func (l *Logger) ProjectCreated(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, name string) {
	l.Log(ctx, l.access(r, audit.EventProjectCreated, actorID, projectID, nil, map[string]string{"name": name}))
}

func (l *Logger) ProjectDeleted(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, name string) {
	l.Log(ctx, l.access(r, audit.EventProjectDeleted, actorID, projectID, nil, map[string]string{"name": name}))
}

// MemberAdded records a new membership; via is "direct" or "invite".
func (l *Logger) MemberAdded(ctx context.Context, r *http.Request, actorID, projectID, userID primitive.ObjectID, role, via string) {
	l.Log(ctx, l.access(r, audit.EventMemberAdded, actorID, projectID, &userID, map[string]string{"role": role, "via": via}))
}

func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, projectID, userID primitive.ObjectID, role string) {
	l.Log(ctx, l.access(r, audit.EventMemberRemoved, actorID, projectID, &userID, map[string]string{"role": role}))
}

func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, projectID, userID primitive.ObjectID, from, to string) {
	l.Log(ctx, l.access(r, audit.EventMemberRoleChanged, actorID, projectID, &userID, map[string]string{"from": from, "to": to}))
}

func (l *Logger) PermissionsReplaced(ctx context.Context, r *http.Request, actorID, projectID, userID primitive.ObjectID, rows int) {
	l.Log(ctx, l.access(r, audit.EventPermissionsReplaced, actorID, projectID, &userID, map[string]string{"rows": strconv.Itoa(rows)}))
}

func (l *Logger) InviteCreated(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, role string) {
	l.Log(ctx, l.access(r, audit.EventInviteCreated, actorID, projectID, nil, map[string]string{"role": role}))
}

func (l *Logger) InviteRevoked(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, code string) {
	l.Log(ctx, l.access(r, audit.EventInviteRevoked, actorID, projectID, nil, map[string]string{"code": code}))
}

func (l *Logger) InviteRedeemed(ctx context.Context, r *http.Request, userID, projectID primitive.ObjectID, role string) {
	l.Log(ctx, l.access(r, audit.EventInviteRedeemed, userID, projectID, &userID, map[string]string{"role": role}))
}
