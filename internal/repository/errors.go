// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the ingestion service to distinguish between different
// failure scenarios without inspecting driver errors themselves.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a room that still has bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrRoomNotFound indicates that no room carries the requested
// storefront product ID.
var ErrRoomNotFound = errors.New("room not found")

// ErrDuplicateRoom is returned when a room with the same product ID
// already exists.
var ErrDuplicateRoom = errors.New("room already exists")

// ErrDuplicateOrder is returned when a booking for the same storefront
// order line already exists. It is the store-level idempotency guard for
// webhook redeliveries.
var ErrDuplicateOrder = errors.New("booking for order already exists")

// ErrLockContention is returned when the server aborted a statement on a
// deadlock or a lock wait timeout. Store.InTx retries the transaction.
var ErrLockContention = errors.New("lock contention")

// MySQL server error numbers the repositories care about.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlRowIsReferenced = 1451
)

// lockContention marks deadlock and lock wait timeout errors with
// ErrLockContention and returns any other error unchanged.
func lockContention(err error) error {
	switch mysqlErrNumber(err) {
	case mysqlLockWaitTimeout, mysqlDeadlock:
		return fmt.Errorf("%w: %w", ErrLockContention, err)
	}
	return err
}

// mysqlErrNumber returns the server error number carried by err, or 0.
func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
