// Command migrate applies the SQL files under the migrations directory in
// lexical order, one transaction per file. It stops at the first failure so
// a broken migration never leaves later files half-applied.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ignite/pulse-bot/internal/pkg/logger"
)

func main() {
	dir := flag.String("dir", "migrations", "directory containing *.sql migration files")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("open database failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("database ping failed", "error", err.Error())
		os.Exit(1)
	}

	files, err := sqlFiles(*dir)
	if err != nil {
		logger.Error("read migrations dir failed", "dir", *dir, "error", err.Error())
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Warn("no migration files found", "dir", *dir)
		return
	}

	for _, name := range files {
		if err := apply(db, filepath.Join(*dir, name)); err != nil {
			logger.Error("migration failed", "file", name, "error", err.Error())
			os.Exit(1)
		}
		logger.Info("migration applied", "file", name)
	}
	logger.Info("migrations complete", "applied", len(files))
}

// sqlFiles returns the *.sql file names in dir, sorted lexically so the
// numeric prefix convention (001_, 002_, ...) determines apply order.
func sqlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one migration file inside its own transaction. Empty files are
// skipped.
func apply(db *sql.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	stmts := strings.TrimSpace(string(data))
	if stmts == "" {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(stmts); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
