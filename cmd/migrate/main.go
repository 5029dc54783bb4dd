package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/freekieb7/calendar/internal/config"
	"github.com/freekieb7/calendar/internal/database"
)

func main() {
	var (
		command = flag.String("command", "", "Migration command: up, down, version, force, create")
		steps   = flag.Int("steps", 0, "Number of migration steps (for up/down)")
		version = flag.Int("version", 0, "Migration version (for force)")
		name    = flag.String("name", "", "Migration name (for create)")
	)
	flag.Parse()

	if *command == "" {
		fmt.Println("Usage: go run ./cmd/migrate -command [up|down|version|force|create] [options]")
		fmt.Println("Commands:")
		fmt.Println("  up             - Apply all pending migrations")
		fmt.Println("  down           - Rollback migrations")
		fmt.Println("  version        - Show current migration version")
		fmt.Println("  force VERSION  - Force set migration version")
		fmt.Println("  create NAME    - Create new migration files")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -steps N       - Number of steps for up/down")
		fmt.Println("  -version N     - Version number for force")
		fmt.Println("  -name NAME     - Migration name for create")
		os.Exit(1)
	}

	if *command == "create" {
		createMigration(*name)
		return
	}

	cfg := config.NewConfig()

	m, err := database.NewMigrator(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Printf("Failed to close migrator: %v", err)
		}
	}()

	switch *command {
	case "up":
		applied, err := m.Up(*steps)
		if err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		if applied {
			fmt.Println("Migrations applied successfully")
		} else {
			fmt.Println("No migrations to apply")
		}

	case "down":
		rolledBack, err := m.Down(*steps)
		if err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		if rolledBack {
			fmt.Println("Migrations rolled back successfully")
		} else {
			fmt.Println("No migrations to rollback")
		}

	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		fmt.Printf("Current version: %d\n", v)
		if dirty {
			fmt.Println("Database is in dirty state")
		} else {
			fmt.Println("Database is clean")
		}

	case "force":
		if *version == 0 {
			log.Fatal("Version number required for force command")
		}
		if err := m.Force(*version); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		fmt.Printf("Migration version forced to %d\n", *version)

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func createMigration(name string) {
	if name == "" {
		log.Fatal("Migration name required for create command")
	}

	nextNum := getNextMigrationNumber()
	upFile := fmt.Sprintf("migrations/%06d_%s.up.sql", nextNum, name)
	downFile := fmt.Sprintf("migrations/%06d_%s.down.sql", nextNum, name)

	if err := os.WriteFile(upFile, []byte("-- Migration up\n\n"), 0644); err != nil {
		log.Fatalf("Failed to create up migration file: %v", err)
	}
	if err := os.WriteFile(downFile, []byte("-- Migration down\n\n"), 0644); err != nil {
		log.Fatalf("Failed to create down migration file: %v", err)
	}

	fmt.Printf("Created migration files:\n")
	fmt.Printf("  %s\n", upFile)
	fmt.Printf("  %s\n", downFile)
}

// getNextMigrationNumber returns the next migration number based on existing files
func getNextMigrationNumber() int {
	files, err := os.ReadDir("migrations")
	if err != nil {
		return 1
	}

	maxNum := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		var num int
		_, err := fmt.Sscanf(file.Name(), "%d_", &num)
		if err == nil && num > maxNum {
			maxNum = num
		}
	}

	return maxNum + 1
}
