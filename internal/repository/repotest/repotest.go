// Package repotest opens throwaway SQLite-backed stores for tests.
package repotest

import (
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/migrations"
)

// NewDB returns an isolated in-memory SQLite database with the schema
// applied. It is closed when the test ends.
func NewDB(tb testing.TB) *sqlx.DB {
	tb.Helper()

	dsn := "file:" + uuid.NewString() +
		"?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { db.Close() })

	schema, err := migrations.FS.ReadFile("sqlite/000001_init.up.sql")
	if err != nil {
		tb.Fatalf("read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			tb.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return db
}

// NewStore returns a Store over NewDB with logging discarded.
func NewStore(tb testing.TB) (*repository.Store, *sqlx.DB) {
	tb.Helper()
	logging.SetOutput(io.Discard)

	db := NewDB(tb)
	return repository.NewStore(db, repository.DialectSQLite, logging.NewLogger("repository-test")), db
}
