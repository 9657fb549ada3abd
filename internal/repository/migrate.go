package repository

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/migrations"
)

const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies the embedded migrations for the configured dialect.
// It opens and closes its own connection.
func Migrate(cfg config.DatabaseConfig, direction string, logger *logging.Logger) error {
	src, err := iofs.New(migrations.FS, cfg.Driver)
	if err != nil {
		return errors.Wrapf(err, "load %s migrations", cfg.Driver)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrationURL())
	if err != nil {
		return errors.Wrap(err, "init migrate")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", logging.Fields{
				"source_error":   errString(srcErr),
				"database_error": errString(dbErr),
			})
		}
	}()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	default:
		return errors.Errorf("unknown migration direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("Schema already up to date", logging.Fields{"driver": cfg.Driver})
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "migrate %s", direction)
	}

	version, dirty, _ := m.Version()
	logger.Info("Migrations applied", logging.Fields{
		"driver":    cfg.Driver,
		"direction": direction,
		"version":   version,
		"dirty":     dirty,
	})
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
