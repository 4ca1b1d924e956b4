package store

import (
	"context"
	"database/sql"
)

// Execer, Getter and Selecter are the minimal sqlx surfaces the stores need.
// Both *sqlx.DB and *sqlx.Tx satisfy them, so a store method that takes an
// Execer or Getter works standalone or inside a surrounding transaction.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

type Tx interface {
	Execer
	Getter
}
