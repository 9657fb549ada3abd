package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

// Dialect selects the SQL flavour a Store emits.
type Dialect string

const (
	DialectPostgres Dialect = config.DriverPostgres
	DialectMySQL    Dialect = config.DriverMySQL
	DialectSQLite   Dialect = config.DriverSQLite
)

// OrderCache caches a buyer's order history under a per-buyer generation.
// GetByBuyer reports the current generation even on a miss, and SetByBuyer
// stores under the generation the caller read. InvalidateBuyer bumps the
// generation, so a history read from the store before an invalidation is
// never served after it.
type OrderCache interface {
	GetByBuyer(ctx context.Context, buyerID int64) (orders []models.Order, generation int64, err error)
	SetByBuyer(ctx context.Context, buyerID, generation int64, orders []models.Order) error
	InvalidateBuyer(ctx context.Context, buyerID int64) error
}

// Store is the catalog and cart store: products, cart lines, addresses
// and orders behind one sqlx handle.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *logging.Logger
	now     func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *sqlx.DB, dialect Dialect, logger *logging.Logger) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.Driver)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", cfg.Driver)
	}
	return db, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) forUpdate() string {
	if s.dialect == DialectSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// insertID runs an INSERT and returns the generated id.
func (s *Store) insertID(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	if s.dialect == DialectPostgres {
		var id int64
		err := q.QueryRowxContext(ctx, q.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}

	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Rollback failed", logging.Fields{"error": rbErr.Error()})
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}
