package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServerTask serves app on addr until ctx is cancelled, then shuts it down
// within shutdownTimeout.
func ServerTask(app *fiber.App, addr string, shutdownTimeout time.Duration, logger *slog.Logger) DaemonFunc {
	return func(ctx context.Context, name string) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "daemon", name, "addr", addr)
			errCh <- app.Listen(addr)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			return errors.New("server stopped unexpectedly")
		case <-ctx.Done():
			logger.Info("Shutting down HTTP server", "daemon", name)
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				logger.Error("Failed to shut down HTTP server", "daemon", name, "error", err)
			}
			return nil
		}
	}
}

// HealthTask runs every check on each tick and exports the outcome as the
// dependency.up gauge (1 up, 0 down), one series per check.
func HealthTask(checks map[string]func(ctx context.Context) error, interval time.Duration, logger *slog.Logger) DaemonFunc {
	return func(ctx context.Context, name string) error {
		gauge, err := otel.Meter("github.com/freekieb7/calendar/internal/daemon").Int64Gauge("dependency.up",
			metric.WithDescription("Whether a dependency answered its last health check"))
		if err != nil {
			return fmt.Errorf("create dependency gauge: %w", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				for check, fn := range checks {
					checkCtx, cancel := context.WithTimeout(ctx, interval)
					err := fn(checkCtx)
					cancel()

					up := int64(1)
					if err != nil {
						up = 0
						logger.WarnContext(ctx, "Dependency check failed", "daemon", name, "check", check, "error", err)
					}
					gauge.Record(ctx, up, metric.WithAttributes(attribute.String("dependency", check)))
				}
			}
		}
	}
}
