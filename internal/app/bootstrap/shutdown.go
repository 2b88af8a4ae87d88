package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background workers and closes the MongoDB client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if inviteCleanup != nil {
		inviteCleanup.Stop()
		inviteCleanup = nil
	}
	if loginLimiter != nil {
		loginLimiter.Close()
	}
	if deps.TaskboardMongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.TaskboardMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
