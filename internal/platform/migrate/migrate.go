// Package migrate applies embedded SQL migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Up applies all pending migrations found under dir in fsys.
func Up(dsn string, fsys fs.FS, dir string, log *zap.Logger) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("migrate: source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, convertDSN(dsn))
	if err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("migrate: close source", zap.Error(srcErr))
		}
		if dbErr != nil {
			log.Warn("migrate: close database", zap.Error(dbErr))
		}
	}()
	m.Log = &zapLogger{log: log}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate: version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migrate: database is dirty at version %d", from)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("migrations up to date", zap.Uint("version", from))
			return nil
		}
		return fmt.Errorf("migrate: up: %w", err)
	}

	to, _, _ := m.Version()
	log.Info("migrations applied", zap.Uint("from", from), zap.Uint("to", to))
	return nil
}

// convertDSN rewrites postgres URLs to the pgx5 scheme the driver registers.
func convertDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	for _, p := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, p) {
			return "pgx5://" + strings.TrimPrefix(dsn, p)
		}
	}
	return dsn
}

type zapLogger struct {
	log *zap.Logger
}

func (l *zapLogger) Printf(format string, args ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *zapLogger) Verbose() bool { return false }
