// Package store persists benchmark sessions and their derived records in
// Postgres through bun. Downstream records are owned by their session and
// scoped to a chunk set; re-running a stage replaces records wholesale
// (clear-then-insert) and cascades over everything derived from them.
package store

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"embedding-bench/internal/config"
)

func Connect(cfg *config.DatabaseConfig) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN()),
		pgdriver.WithPassword(cfg.Password),
	))
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

var tables = []any{
	(*Session)(nil),
	(*OcrPage)(nil),
	(*Chunk)(nil),
	(*ChunkEmbedding)(nil),
	(*Question)(nil),
	(*AnswerRecord)(nil),
	(*WerResult)(nil),
}

// Init creates all tables when they do not exist yet. Schema migrations
// are out of scope; a fresh database is the supported starting point.
func Init(ctx context.Context, db *bun.DB) error {
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
