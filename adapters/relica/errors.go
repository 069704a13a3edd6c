package relica

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
)

// idRow receives the id column of a narrowed SELECT.
type idRow struct {
	ID int64 `db:"id"`
}

// affected turns the result of a bulk statement into a row count.
func affected(result sql.Result, err error, message string) (int, error) {
	if err != nil {
		return 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, message, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, message, err)
	}
	return int(n), nil
}

// isUniqueViolation reports whether err is a unique index violation on any of the
// supported dialects.
//
// SQLite is matched on the engine's message: its typed error lives behind cgo,
// and this package must build without it.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
