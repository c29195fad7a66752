package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/safar/repair-orders/internal/config"
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)

	if len(os.Args) < 2 {
		log.Fatal().Msg("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal().Str("direction", direction).Msg("Direction must be 'up' or 'down'")
	}

	db, err := database.NewConnection(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Connect to database")
	}
	defer db.Close()

	migrationDir := "migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", migrationDir).Msg("Read migration directory")
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	if direction == "down" {
		for i, j := 0, len(migrationFiles)-1; i < j; i, j = i+1, j-1 {
			migrationFiles[i], migrationFiles[j] = migrationFiles[j], migrationFiles[i]
		}
	}

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("Read migration file")
		}

		log.Info().Str("file", filename).Msg("Running migration")
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("Execute migration")
		}
	}

	log.Info().Int("count", len(migrationFiles)).Str("direction", direction).Msg("Migrations applied")
}
