package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/iliyamo/room-booking-sync/internal/model"
)

// RoomRepo manages persistence for rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, shopify_product_id, name, max_guests, area`

// GetByProductID fetches the room sold as the given storefront product.
// It returns ErrRoomNotFound when no such room exists.
func (r *RoomRepo) GetByProductID(ctx context.Context, productID int64) (*model.Room, error) {
	return r.getByProductID(ctx, r.db, productID)
}

func (r *RoomRepo) getByProductID(ctx context.Context, q dbtx, productID int64) (*model.Room, error) {
	var room model.Room
	err := q.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE shopify_product_id = ? LIMIT 1`, productID,
	).Scan(&room.ID, &room.ShopifyProductID, &room.Name, &room.MaxGuests, &room.Area)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// List returns rooms ordered by name. A non-empty search term matches
// rooms whose name contains it or whose product ID equals it.
func (r *RoomRepo) List(ctx context.Context, search string) ([]model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms`
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+s+"%")
		if pid, err := strconv.ParseInt(s, 10, 64); err == nil {
			query += ` OR shopify_product_id = ?`
			args = append(args, pid)
		}
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.ShopifyProductID, &room.Name, &room.MaxGuests, &room.Area); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// Create inserts a room and populates its generated ID. A duplicate
// product ID yields ErrDuplicateRoom.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (shopify_product_id, name, max_guests, area) VALUES (?, ?, ?, ?)`,
		room.ShopifyProductID, room.Name, room.MaxGuests, room.Area)
	if err != nil {
		if mysqlErrNumber(err) == mysqlDuplicateEntry {
			return ErrDuplicateRoom
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	return nil
}

// DeleteByProductID removes a room. Rooms referenced by bookings are
// protected: the foreign key rejects the delete and ErrConflict is
// returned. ErrRoomNotFound is returned when nothing was deleted.
func (r *RoomRepo) DeleteByProductID(ctx context.Context, productID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE shopify_product_id = ?`, productID)
	if err != nil {
		if mysqlErrNumber(err) == mysqlRowIsReferenced {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
