package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/config"
	"github.com/freekieb7/calendar/internal/database"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/logger"
	"github.com/freekieb7/calendar/internal/seed"
	"github.com/freekieb7/calendar/internal/telemetry"
	"github.com/freekieb7/calendar/internal/validator"
)

func main() {
	ctx := context.Background()
	cfg := config.NewConfig()

	// Seeding is a one-off; keep telemetry off.
	cfg.Telemetry.Enabled = false
	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	slogger := logger.New(cfg, tel)

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	v := validator.New()
	auditor := audit.NewAuditor(slogger, &db)
	employees := employee.NewManager(slogger, &db, &auditor, v)
	planner := calendar.NewManager(slogger, &db, &db, &auditor, v)

	credentials, err := seed.Seed(ctx, slogger, &employees, &planner, time.Now())
	if err != nil {
		log.Fatalf("Failed to seed test data: %v", err)
	}

	if len(credentials) == 0 {
		fmt.Println("Test data already present, nothing to do")
		return
	}

	fmt.Println("Created test employees:")
	for _, c := range credentials {
		fmt.Printf("  %-10s %-10s %s\n", c.Username, c.SecurityLevel, c.Password)
	}
}
