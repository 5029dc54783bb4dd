package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/auth"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/config"
	"github.com/freekieb7/calendar/internal/daemon"
	"github.com/freekieb7/calendar/internal/database"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/logger"
	"github.com/freekieb7/calendar/internal/memstore"
	"github.com/freekieb7/calendar/internal/seed"
	"github.com/freekieb7/calendar/internal/session"
	"github.com/freekieb7/calendar/internal/telemetry"
	"github.com/freekieb7/calendar/internal/token"
	"github.com/freekieb7/calendar/internal/validator"
	"github.com/freekieb7/calendar/internal/web"

	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 30 * time.Second
)

type store interface {
	employee.Store
	calendar.Store
	audit.Store
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "calendar:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	log := logger.New(cfg, tel)
	log.Info("Starting calendar service", "environment", cfg.Server.Environment, "db_driver", cfg.Database.Driver, "telemetry", tel.IsEnabled())

	healthChecks := make(map[string]web.HealthCheck)

	var st store
	switch cfg.Database.Driver {
	case config.DatabaseDriverMemory:
		log.Warn("Using the in-memory store, data is lost on restart")
		st = memstore.New()
	default:
		db := database.NewDatabase()
		if err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		healthChecks["database"] = db.Ping
		st = &db
	}

	var (
		limiter  auth.Limiter
		denylist session.Denylist
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		limiter = auth.NewRateLimiter(redisClient, cfg.Auth.MaxLoginAttempts, cfg.Auth.LoginWindow)
		if cfg.Auth.RevokeOnLogout {
			denylist = session.NewRedisDenylist(redisClient)
		}
	} else if cfg.Auth.RevokeOnLogout {
		log.Warn("AUTH_REVOKE_ON_LOGOUT needs Redis; logout stays stateless")
	}

	v := validator.New()
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration, cfg.Auth.Issuer)
	auditor := audit.NewAuditor(log, st)
	employeeManager := employee.NewManager(log, st, &auditor, v)
	planner := calendar.NewManager(log, st, st, &auditor, v)
	authenticator := auth.NewAuthenticator(log, st, tokens, &auditor, limiter, denylist)
	resolver := session.NewResolver(log, tokens, st, denylist)

	if cfg.Database.Driver == config.DatabaseDriverMemory {
		credentials, err := seed.Seed(ctx, log, &employeeManager, &planner, time.Now())
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		for _, c := range credentials {
			log.Info("Seeded demo employee", "username", c.Username, "password", c.Password, "security_level", c.SecurityLevel.String())
		}
	}

	apiHandler := web.NewAPIHandler(log, &authenticator, &planner, &employeeManager, v, healthChecks)
	app := web.NewApp(log, cfg, apiHandler, &resolver)

	manager := daemon.NewDaemonManager(log, daemon.DefaultRestartDelay)
	manager.Add("http", daemon.ServerTask(app, cfg.Server.Addr(), shutdownTimeout, log))
	if len(healthChecks) > 0 {
		manager.Add("health", daemon.HealthTask(healthChecks, healthInterval, log))
	}

	log.Info("Starting supervised daemons...")
	manager.Start(ctx)
	manager.Wait()

	log.Info("Calendar service stopped")
	return nil
}
