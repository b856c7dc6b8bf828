package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/room-booking-sync/internal/model"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories need, so the
// same query code runs inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OrderTx is the view of the store available inside an order ingestion
// transaction. Every call participates in the same transaction.
type OrderTx interface {
	RoomByProductID(ctx context.Context, productID int64) (*model.Room, error)
	OrderExists(ctx context.Context, orderID int64) (bool, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
}

// Store bundles the room and booking repositories behind the operations
// the availability and ingestion services depend on.
type Store struct {
	db       *sql.DB
	Rooms    *RoomRepo
	Bookings *BookingRepo
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, Rooms: NewRoomRepo(db), Bookings: NewBookingRepo(db)}
}

// RoomByProductID resolves a storefront product ID to a room.
func (s *Store) RoomByProductID(ctx context.Context, productID int64) (*model.Room, error) {
	return s.Rooms.GetByProductID(ctx, productID)
}

// ConfirmedBookings returns confirmed bookings of a room overlapping the
// inclusive day range [first, last].
func (s *Store) ConfirmedBookings(ctx context.Context, roomID uint64, first, last time.Time) ([]model.Booking, error) {
	return s.Bookings.ConfirmedOverlapping(ctx, roomID, first, last)
}

// maxTxAttempts bounds how often InTx runs a transaction that keeps losing
// lock conflicts.
const maxTxAttempts = 3

// InTx runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise; fn's error is
// returned unchanged. When fn fails with ErrLockContention the whole
// transaction is rolled back and fn runs again in a fresh one, so fn must
// not keep state across calls.
func (s *Store) InTx(ctx context.Context, fn func(tx OrderTx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.inTx(ctx, fn)
		if !errors.Is(err, ErrLockContention) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(tx OrderTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&orderTx{tx: tx, rooms: s.Rooms, bookings: s.Bookings}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type orderTx struct {
	tx       *sql.Tx
	rooms    *RoomRepo
	bookings *BookingRepo
}

func (o *orderTx) RoomByProductID(ctx context.Context, productID int64) (*model.Room, error) {
	return o.rooms.getByProductID(ctx, o.tx, productID)
}

func (o *orderTx) OrderExists(ctx context.Context, orderID int64) (bool, error) {
	return o.bookings.OrderExistsTx(ctx, o.tx, orderID)
}

func (o *orderTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return o.bookings.CreateTx(ctx, o.tx, b)
}
