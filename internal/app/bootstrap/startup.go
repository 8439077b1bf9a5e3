// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/questionbank/internal/app/resources"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time initialization after the database is ready and
// before the handler is built: it checks the route table, applies timeout
// overrides and loads the shared templates.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := rbac.Validate(); err != nil {
		logger.Error("route table invalid", zap.Error(err))
		return err
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment",
			zap.Int("count", n),
			zap.Any("timeouts", timeouts.Current()))
	}

	resources.LoadSharedTemplates()
	return nil
}
