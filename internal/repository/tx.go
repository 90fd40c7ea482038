package repository

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
)

type txKey struct{}

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultTxAttempts = 3

// Store owns the connection pool and runs units of work.  Repositories
// share the pool and pick up the transaction placed in the context by
// WithTx, so a service can compose several repository calls into one
// atomic unit without passing *sql.Tx around.
type Store struct {
	db       *sql.DB
	attempts int
	log      logrus.FieldLogger
}

// NewStore returns a Store bound to db.  A nil logger discards output.
func NewStore(db *sql.DB, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Store{db: db, attempts: defaultTxAttempts, log: log}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction.  The transaction is committed
// when fn returns nil and rolled back otherwise, including when fn
// panics.  When ctx already carries a transaction fn joins it.  A
// transaction aborted by a MySQL deadlock or lock wait timeout is
// replayed from scratch up to three times.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{"attempt": attempt, "error": err}).Warn("transaction aborted by lock conflict, retrying")
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Storage("failed to start transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return model.Storage("failed to commit transaction", err)
	}
	committed = true
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// lockConn is like conn but refuses to run without a transaction.
func lockConn(ctx context.Context) (querier, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, ErrNoTx
	}
	return tx, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
