package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	pqForeignKeyViolation    = "23503"
	mysqlForeignKeyViolation = 1452
)

// isForeignKeyViolation reports whether err is a missing-parent error, which
// for results means the referenced request does not exist.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqForeignKeyViolation
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlForeignKeyViolation
	}
	return false
}
