package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"storagedrive/internal/repository/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open подключается к базе, повторяя попытки пока база не станет доступна
func Open(ctx context.Context, driver, dsn string, maxAttempts int, delay time.Duration, log *zap.Logger) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.ConnectContext(ctx, driver, dsn)
		if err == nil {
			break
		}

		log.Warn("failed to connect to database",
			zap.String("driver", driver),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		if i == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
	}

	// SQLite не допускает параллельных писателей, а :memory: живет в одном соединении
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

func sqliteDSN(dsn string) string {
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_time_format=sqlite",
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Migrate применяет встроенные миграции. Для postgres мигратор открывает
// собственное соединение по databaseURL, для sqlite работает через общий пул.
func Migrate(db *sqlx.DB, databaseURL string, log *zap.Logger) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations source: %w", err)
	}

	var m *migrate.Migrate
	switch db.DriverName() {
	case DriverPostgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
		defer m.Close()
	case DriverSQLite:
		driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
		}
		// Close не вызываем: драйвер закроет общий пул
		m, err = migrate.NewWithInstance("iofs", src, DriverSQLite, driver)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn("found dirty database state, forcing version", zap.Uint("version", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// isUniqueViolation распознает нарушение уникального индекса в обоих драйверах
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
