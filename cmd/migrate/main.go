package main

import (
	"bufio"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tradeledger/internal/config"
	"tradeledger/internal/db"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Down sections are separated from the up statements by this marker inside
// each migration file.
const downMarker = "-- +migrate Down"

func main() {
	dir := flag.String("dir", "migrations", "directory holding *.sql migration files")
	down := flag.Bool("down", false, "roll back the most recently applied migration")
	flag.Parse()

	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema_migrations")
	}

	if *down {
		rollbackLast(database, *dir)
		return
	}
	applyPending(database, *dir)
}

func applyPending(database *sqlx.DB, dir string) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migrations")
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatal().Err(err).Msg("failed to read migration state")
		}
		if exists {
			continue
		}
		if err := runSection(database, file, false); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to apply migration")
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to record migration")
		}
		applied++
		log.Info().Str("file", filename).Msg("applied migration")
	}
	log.Info().Int("applied", applied).Int("total", len(files)).Msg("migrations up to date")
}

func rollbackLast(database *sqlx.DB, dir string) {
	var filename string
	err := database.Get(&filename, `SELECT filename FROM schema_migrations ORDER BY applied_at DESC, filename DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		log.Info().Msg("nothing to roll back")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migration state")
	}
	if err := runSection(database, filepath.Join(dir, filename), true); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to roll back migration")
	}
	if _, err := database.Exec(`DELETE FROM schema_migrations WHERE filename = $1`, filename); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to unrecord migration")
	}
	log.Info().Str("file", filename).Msg("rolled back migration")
}

func runSection(db execer, path string, down bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	up, downSection, _ := strings.Cut(string(content), downMarker)
	section := up
	if down {
		section = downSection
	}
	for _, stmt := range splitSQL(section) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitSQL breaks a migration section into single statements on semicolons,
// skipping comment lines. Good enough for DDL; no function bodies here.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
