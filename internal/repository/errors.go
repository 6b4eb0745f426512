package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup, update or delete matched no row.
	ErrNotFound = errors.New("record not found")

	// ErrConnectionLost is returned when the database could not be reached.
	ErrConnectionLost = errors.New("database connection lost")
)

// wrap annotates err with the failed operation and tags connection failures
// with ErrConnectionLost so callers can tell transient outages apart.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if isConnectionLost(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrConnectionLost, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionLost(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Class 08 is "connection exception", 57P01 is admin shutdown.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P01"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// ER_SERVER_SHUTDOWN, CR_SERVER_GONE_ERROR, CR_SERVER_LOST
		return myErr.Number == 1053 || myErr.Number == 2006 || myErr.Number == 2013
	}
	return false
}
