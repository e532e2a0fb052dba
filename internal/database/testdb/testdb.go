// Package testdb opens an in-memory SQLite database with the box office
// schema for package tests.
package testdb

import (
	"context"
	"database/sql"
	"testing"

	"ms-boxoffice/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var tables = []any{
	(*models.Customer)(nil),
	(*models.Event)(nil),
	(*models.Product)(nil),
	(*models.Promo)(nil),
	(*models.Order)(nil),
	(*models.OrderItem)(nil),
	(*models.Transaction)(nil),
	(*models.Guest)(nil),
}

// New returns a bun DB backed by a private in-memory SQLite database. A single
// connection is kept open so every query sees the same database.
func New(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range tables {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}
