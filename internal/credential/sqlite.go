package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/nanorelay/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// sqliteParams make timestamps sortable as text and let concurrent callers wait for locks.
const sqliteParams = "_time_format=sqlite&_pragma=busy_timeout(5000)"

// SQLiteStore persists registrations in a SQLite database.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// OpenSQLite connects to the database at path and applies migrations.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "sqlite_store")

	db, err := sqlx.Connect("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite doesn't support concurrent writes, so max open conns = 1
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ApplyMigrations(db.DB, log); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Info("Database connected and migrations applied successfully", "path", path)
	return &SQLiteStore{db: db, logger: log}, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

// ApplyMigrations runs database migrations using embedded files.
func ApplyMigrations(db *sql.DB, logger *slog.Logger) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database migrations applied successfully.")
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, reg *Registration) error {
	if err := validate(reg); err != nil {
		return err
	}

	row := *reg
	row.CreatedAt = row.CreatedAt.UTC()
	row.LastSeenAt = row.LastSeenAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO bot_registrations (token, webhook_url, api_key, created_at, last_seen_at)
		VALUES (:token, :webhook_url, :api_key, :created_at, :last_seen_at)
		ON CONFLICT(token) DO UPDATE SET
			webhook_url = excluded.webhook_url,
			api_key = excluded.api_key,
			created_at = excluded.created_at,
			last_seen_at = excluded.last_seen_at`, &row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save registration", "error", err)
		return fmt.Errorf("failed to save registration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, token string) (*Registration, error) {
	var reg Registration
	err := s.db.GetContext(ctx, &reg, `
		SELECT token, webhook_url, api_key, created_at, last_seen_at
		FROM bot_registrations WHERE token = ?`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &reg, nil
}

func (s *SQLiteStore) Touch(ctx context.Context, token string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bot_registrations SET last_seen_at = ? WHERE token = ?`, at.UTC(), token)
	if err != nil {
		return fmt.Errorf("failed to touch registration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_registrations WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bot_registrations`); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) DeleteInactive(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bot_registrations WHERE last_seen_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive registrations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return int(n), nil
}

// Maintain runs PRAGMA optimize and VACUUM. VACUUM cannot run inside a transaction.
func (s *SQLiteStore) Maintain(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	startTime := time.Now()

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(startTime))
	return nil
}

// Close closes the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.logger.Info("Database connection closed successfully.")
	return nil
}
