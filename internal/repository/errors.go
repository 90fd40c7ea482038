// Package repository contains the MySQL-backed entity store for users,
// events and reservations.  Missing rows are reported as
// model.ErrNotFound so callers can attach their own message; every
// other database failure is wrapped with the operation that failed.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNoTx is returned by locking reads (the ...ForUpdate methods) when
// the context does not carry a transaction started by Store.WithTx.
// A FOR UPDATE read outside a transaction would release its lock
// immediately, which defeats its purpose.
var ErrNoTx = errors.New("locking read requires a transaction")

// MySQL server error numbers inspected by the store.
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errNoReferencedRow = 1452
	errRowIsReferenced = 1451
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isRetryable reports whether err is a transient locking failure after
// which the whole transaction can safely be replayed.
func isRetryable(err error) bool {
	n := mysqlErrNumber(err)
	return n == errDeadlock || n == errLockWaitTimeout
}

// isForeignKeyViolation reports whether err was raised because an
// INSERT/UPDATE referenced a missing parent row, or a DELETE hit a
// parent row that still has children.
func isForeignKeyViolation(err error) bool {
	n := mysqlErrNumber(err)
	return n == errNoReferencedRow || n == errRowIsReferenced
}
