package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var scripts embed.FS

const scriptsDir = "sql"

// Runner applies the embedded goose migrations against PostgreSQL.
type Runner struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunner prepares goose to read from the embedded scripts.
func NewRunner(db *sql.DB, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	goose.SetBaseFS(scripts)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Runner{db: db, logger: logger}, nil
}

// Up migrates to the latest version.
func (r *Runner) Up() error {
	from, err := goose.GetDBVersion(r.db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	if err := goose.Up(r.db, scriptsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	to, err := goose.GetDBVersion(r.db)
	if err != nil {
		return fmt.Errorf("get final version: %w", err)
	}
	r.logger.Info("migrations applied", zap.Int64("from_version", from), zap.Int64("to_version", to))
	return nil
}

// Down rolls back the given number of steps.
func (r *Runner) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if err := goose.Down(r.db, scriptsDir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
	}
	r.logger.Info("migrations rolled back", zap.Int("steps", steps))
	return nil
}

// Status prints the goose status table to the goose logger.
func (r *Runner) Status() error {
	if err := goose.Status(r.db, scriptsDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func (r *Runner) Version() (int64, error) {
	return goose.GetDBVersion(r.db)
}
