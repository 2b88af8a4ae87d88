package bootstrap

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time initialization after the schema is in place and
// before the handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv("TASKBOARD"); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("overrides", n))
	}
	t := timeouts.Current()
	logger.Info("effective configuration",
		zap.String("env", coreCfg.Env),
		zap.String("mongo_database", appCfg.MongoDatabase),
		zap.String("upload_path", appCfg.UploadPath),
		zap.Int64("upload_max_bytes", appCfg.UploadMaxBytes),
		zap.Duration("invite_default_ttl", appCfg.InviteDefaultTTL),
		zap.Duration("invite_cleanup_interval", appCfg.InviteCleanupInterval),
		zap.Duration("invite_retention", appCfg.InviteRetention),
		zap.Int("login_rate_limit", appCfg.LoginRateLimit),
		zap.Duration("login_rate_window", appCfg.LoginRateWindow),
		zap.Duration("timeout_short", t.Short),
		zap.Duration("timeout_medium", t.Medium),
		zap.Duration("timeout_long", t.Long))

	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureSuperAdmin promotes the configured account to global admin, or
// creates it when a password is configured. Without a password a missing
// account is only reported.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	users := userstore.New(deps.TaskboardMongoDatabase)

	err := users.SetGlobalAdmin(ctx, email, true)
	if err == nil {
		logger.Info("superadmin ensured", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return err
	}

	if password == "" {
		logger.Warn("superadmin account does not exist and no superadmin_password is set; skipping",
			zap.String("email", email))
		return nil
	}
	u, err := users.Create(ctx, superAdminUser(email), password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Registered between our two calls.
		return users.SetGlobalAdmin(ctx, email, true)
	}
	if err != nil {
		return err
	}
	logger.Info("superadmin created", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
	return nil
}

func superAdminUser(email string) models.User {
	return models.User{Email: email, Name: "Super Admin", IsGlobalAdmin: true}
}
