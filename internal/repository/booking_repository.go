package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/room-booking-sync/internal/model"
)

// BookingRepo provides persistence for bookings. Dates are stored as SQL
// DATE columns and passed as YYYY-MM-DD strings; timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, room_id, start_date, end_date, customer_email, shopify_order_id, shopify_line_item_id, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner, b *model.Booking) error {
	var orderID, lineItemID sql.NullInt64
	var status string
	if err := s.Scan(&b.ID, &b.RoomID, &b.StartDate, &b.EndDate, &b.CustomerEmail,
		&orderID, &lineItemID, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	b.Status = model.BookingStatus(status)
	b.StartDate = model.DayOf(b.StartDate)
	b.EndDate = model.DayOf(b.EndDate)
	if orderID.Valid {
		v := orderID.Int64
		b.ShopifyOrderID = &v
	}
	if lineItemID.Valid {
		v := lineItemID.Int64
		b.ShopifyLineItemID = &v
	}
	return nil
}

// ConfirmedOverlapping returns the confirmed bookings of a room whose
// half-open interval [start_date, end_date) overlaps the inclusive day
// range [first, last]: start_date <= last AND end_date > first. A booking
// that checks out on first therefore does not match.
func (r *BookingRepo) ConfirmedOverlapping(ctx context.Context, roomID uint64, first, last time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE room_id = ? AND status = ? AND start_date <= ? AND end_date > ?
               ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, q, roomID, string(model.BookingConfirmed),
		model.FormatDate(last), model.FormatDate(first))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// OrderExistsTx reports whether any booking already carries the given
// storefront order ID. The matching rows are locked for the rest of the
// transaction so a concurrent delivery of the same order waits. Two
// deliveries of an order not stored yet only share a gap lock; the loser
// of the following inserts gets ErrLockContention.
func (r *BookingRepo) OrderExistsTx(ctx context.Context, tx *sql.Tx, orderID int64) (bool, error) {
	var id uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM bookings WHERE shopify_order_id = ? LIMIT 1 FOR UPDATE`, orderID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, lockContention(err)
	}
	return true, nil
}

// CreateTx inserts a booking within the scope of an existing transaction
// and populates its generated ID and timestamps. A duplicate (order, line
// item) pair yields ErrDuplicateOrder, a deadlock or lock wait timeout
// ErrLockContention. The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (room_id, start_date, end_date, customer_email, shopify_order_id, shopify_line_item_id, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.RoomID, model.FormatDate(b.StartDate), model.FormatDate(b.EndDate),
		b.CustomerEmail, nullInt64(b.ShopifyOrderID), nullInt64(b.ShopifyLineItemID), string(b.Status))
	if err != nil {
		if mysqlErrNumber(err) == mysqlDuplicateEntry {
			return ErrDuplicateOrder
		}
		return lockContention(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the full row to populate timestamps and defaults
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row, b)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// BookingFilter narrows List. Zero values disable a criterion.
type BookingFilter struct {
	Status        model.BookingStatus
	RoomProductID int64
	Search        string // customer email substring or exact order ID
}

// BookingListItem is a booking joined with its room for admin listings.
type BookingListItem struct {
	ID             uint64 `json:"id"`
	RoomName       string `json:"room_name"`
	RoomProductID  int64  `json:"room_product_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	CustomerEmail  string `json:"customer_email"`
	ShopifyOrderID *int64 `json:"shopify_order_id"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// List returns bookings ordered by start date, most recent first.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]BookingListItem, error) {
	query := `SELECT b.id, ro.name, ro.shopify_product_id, b.start_date, b.end_date, b.customer_email,
                     b.shopify_order_id, b.status, b.created_at
              FROM bookings b
              JOIN rooms ro ON ro.id = b.room_id`
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, string(f.Status))
	}
	if f.RoomProductID != 0 {
		where = append(where, "ro.shopify_product_id = ?")
		args = append(args, f.RoomProductID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		cond := "b.customer_email LIKE ?"
		args = append(args, "%"+s+"%")
		if oid, err := strconv.ParseInt(s, 10, 64); err == nil {
			cond = "(" + cond + " OR b.shopify_order_id = ?)"
			args = append(args, oid)
		}
		where = append(where, cond)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.start_date DESC, b.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BookingListItem{}
	for rows.Next() {
		var it BookingListItem
		var start, end, created time.Time
		var orderID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.RoomName, &it.RoomProductID, &start, &end, &it.CustomerEmail,
			&orderID, &it.Status, &created); err != nil {
			return nil, err
		}
		it.StartDate = model.FormatDate(start)
		it.EndDate = model.FormatDate(end)
		it.CreatedAt = created.UTC().Format(time.RFC3339)
		if orderID.Valid {
			v := orderID.Int64
			it.ShopifyOrderID = &v
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
