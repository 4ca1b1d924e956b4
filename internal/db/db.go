package db

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Every ledger mutation runs through WithTx in a single SERIALIZABLE
// transaction. Serialization failures and deadlocks are retried with backoff,
// so callers see either a committed operation or a single error.

var ErrTxRetryLimit = errors.New("transaction retry limit exceeded")

const (
	maxTxAttempts = 5
	backoffBase   = 20 * time.Millisecond
	jitterCeiling = 10 * time.Millisecond
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) SQLXTxRunner {
	return SQLXTxRunner{db: db}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return WithTx(ctx, r.db, fn)
}

func Connect(databaseURL string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	database.SetConnMaxIdleTime(5 * time.Minute)
	database.SetMaxIdleConns(5)
	database.SetMaxOpenConns(30)
	database.SetConnMaxLifetime(30 * time.Minute)
	return database, nil
}

func WithTx(ctx context.Context, database *sqlx.DB, fn func(*sqlx.Tx) error) error {
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		tx, err := database.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		err = fn(tx)
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
		if err == nil {
			return nil
		}
		if !isRetryablePGError(err) || attempt == maxTxAttempts {
			return err
		}
		// Quadratic backoff with jitter spreads concurrent retries apart.
		backoff := time.Duration(attempt*attempt) * backoffBase
		time.Sleep(backoff + time.Duration(rand.Int63n(int64(jitterCeiling))))
	}
	return ErrTxRetryLimit
}

// 40001 serialization_failure, 40P01 deadlock_detected
func isRetryablePGError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
