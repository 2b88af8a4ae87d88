package bootstrap

import (
	"net/http"

	accountsfeature "github.com/dalemusser/taskboard/internal/app/features/accounts"
	attachmentsfeature "github.com/dalemusser/taskboard/internal/app/features/attachments"
	auditlogfeature "github.com/dalemusser/taskboard/internal/app/features/auditlog"
	commentsfeature "github.com/dalemusser/taskboard/internal/app/features/comments"
	errorsfeature "github.com/dalemusser/taskboard/internal/app/features/errors"
	healthfeature "github.com/dalemusser/taskboard/internal/app/features/health"
	invitesfeature "github.com/dalemusser/taskboard/internal/app/features/invites"
	membersfeature "github.com/dalemusser/taskboard/internal/app/features/members"
	projectsfeature "github.com/dalemusser/taskboard/internal/app/features/projects"
	searchfeature "github.com/dalemusser/taskboard/internal/app/features/search"
	statusesfeature "github.com/dalemusser/taskboard/internal/app/features/statuses"
	tasksfeature "github.com/dalemusser/taskboard/internal/app/features/tasks"
	auditstore "github.com/dalemusser/taskboard/internal/app/store/audit"
	invitestore "github.com/dalemusser/taskboard/internal/app/store/invites"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/auditlog"
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/blobstore"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/ratelimit"
	"github.com/dalemusser/taskboard/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Background collaborators stopped by Shutdown.
var (
	loginLimiter  *ratelimit.LoginLimiter
	inviteCleanup *workers.InviteCleanup
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the shared collaborators
// (sessions, bearer tokens, the membership gate, blob storage, audit log)
// and mounts every feature router under /api.
//
// Project sub-resources are mounted at their full paths rather than inside
// the projects router, so each feature owns its own middleware stack.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.TaskboardMongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(appCfg.TokenSecret, appCfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.SetTokenIssuer(tokens)

	// Re-read the user on every request so admin changes and deletions
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	blobs, err := blobstore.NewDisk(appCfg.UploadPath)
	if err != nil {
		logger.Error("attachment storage init failed", zap.Error(err))
		return nil, err
	}

	errLog := errorsfeature.NewErrorLogger(logger)
	resolver := authz.NewResolver(authz.JoinSource(membershipstore.New(db), permissionstore.New(db)))
	gate := gates.New(resolver, errLog)
	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Admin:  appCfg.AuditLogAdmin,
		Access: appCfg.AuditLogAccess,
	})
	if appCfg.LoginRateLimit > 0 {
		loginLimiter = ratelimit.NewLoginLimiter(appCfg.LoginRateLimit, appCfg.LoginRateWindow)
	}
	if appCfg.InviteCleanupInterval > 0 {
		inviteCleanup = workers.NewInviteCleanup(invitestore.New(db), logger, appCfg.InviteCleanupInterval, appCfg.InviteRetention)
		inviteCleanup.Start()
	}

	r := chi.NewRouter()

	// Global auth middleware: loads the SessionUser from the bearer token
	// or session cookie when present.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.TaskboardMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Accounts and authentication
	accountsHandler := accountsfeature.NewHandler(db, sessionMgr, loginLimiter, errLog, audit, logger)
	r.Mount("/api/auth", accountsfeature.Routes(accountsHandler, sessionMgr))

	// Projects and their sub-resources
	projectsHandler := projectsfeature.NewHandler(db, blobs, gate, errLog, audit, logger)
	r.Mount("/api/projects", projectsfeature.Routes(projectsHandler, sessionMgr))

	membersHandler := membersfeature.NewHandler(db, gate, errLog, audit, logger)
	r.Mount("/api/projects/{projectID}/members", membersfeature.Routes(membersHandler, sessionMgr))

	statusesHandler := statusesfeature.NewHandler(db, gate, errLog, logger)
	r.Mount("/api/projects/{projectID}/statuses", statusesfeature.Routes(statusesHandler, sessionMgr))
	r.Mount("/api/statuses", statusesfeature.ItemRoutes(statusesHandler, sessionMgr))

	tasksHandler := tasksfeature.NewHandler(db, blobs, gate, errLog, logger)
	r.Mount("/api/projects/{projectID}/tasks", tasksfeature.Routes(tasksHandler, sessionMgr))
	r.Mount("/api/projects/{projectID}/users", tasksfeature.UserRoutes(tasksHandler, sessionMgr))
	r.Mount("/api/tasks", tasksfeature.ItemRoutes(tasksHandler, sessionMgr))

	invitesHandler := invitesfeature.NewHandler(db, gate, appCfg.InviteDefaultTTL, errLog, audit, logger)
	r.Mount("/api/projects/{projectID}/invites", invitesfeature.ProjectRoutes(invitesHandler, sessionMgr))
	r.Mount("/api/invites", invitesfeature.CodeRoutes(invitesHandler, sessionMgr))

	// Task sub-resources
	commentsHandler := commentsfeature.NewHandler(db, gate, errLog, logger)
	r.Mount("/api/tasks/{taskID}/comments", commentsfeature.TaskRoutes(commentsHandler, sessionMgr))
	r.Mount("/api/comments", commentsfeature.ItemRoutes(commentsHandler, sessionMgr))

	attachmentsHandler := attachmentsfeature.NewHandler(db, blobs, gate, appCfg.UploadMaxBytes, errLog, logger)
	r.Mount("/api/tasks/{taskID}/attachments", attachmentsfeature.Routes(attachmentsHandler, sessionMgr))

	searchHandler := searchfeature.NewHandler(db, gate, errLog, logger)
	r.Mount("/api/search", searchfeature.Routes(searchHandler, sessionMgr))

	// Audit trail: site-wide for global admins, per project for owners and admins
	auditHandler := auditlogfeature.NewHandler(db, gate, errLog, logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr))
	r.Mount("/api/projects/{projectID}/audit", auditlogfeature.ProjectRoutes(auditHandler, sessionMgr))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorsfeature.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorsfeature.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r, nil
}
