package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/room-booking-sync/internal/model"
	"github.com/iliyamo/room-booking-sync/internal/repository"
)

// memStore is an in-memory reservation store. InTx stages writes and only
// publishes them when fn succeeds, mirroring a SQL transaction.
type memStore struct {
	rooms    map[int64]model.Room
	bookings []model.Booking
	nextID   uint64

	failCreateAfter int // fail the Nth CreateBooking call when > 0
	createCalls     int
	lookupErr       error
	missOrderCheck  bool // OrderExists always reports false
}

func newMemStore(rooms ...model.Room) *memStore {
	s := &memStore{rooms: map[int64]model.Room{}, nextID: 100}
	for _, r := range rooms {
		s.rooms[r.ShopifyProductID] = r
	}
	return s
}

func (s *memStore) RoomByProductID(_ context.Context, productID int64) (*model.Room, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	r, ok := s.rooms[productID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &r, nil
}

func (s *memStore) ConfirmedBookings(_ context.Context, roomID uint64, first, last time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status == model.BookingConfirmed &&
			!b.StartDate.After(last) && b.EndDate.After(first) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) InTx(ctx context.Context, fn func(tx repository.OrderTx) error) error {
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.bookings = append(s.bookings, tx.staged...)
	return nil
}

type memTx struct {
	store  *memStore
	staged []model.Booking
}

func (t *memTx) RoomByProductID(ctx context.Context, productID int64) (*model.Room, error) {
	return t.store.RoomByProductID(ctx, productID)
}

func (t *memTx) OrderExists(_ context.Context, orderID int64) (bool, error) {
	if t.store.missOrderCheck {
		return false, nil
	}
	for _, b := range t.store.bookings {
		if b.ShopifyOrderID != nil && *b.ShopifyOrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateBooking(_ context.Context, b *model.Booking) error {
	t.store.createCalls++
	if t.store.failCreateAfter > 0 && t.store.createCalls >= t.store.failCreateAfter {
		return errors.New("connection reset")
	}
	for _, existing := range append(t.store.bookings, t.staged...) {
		if existing.ShopifyOrderID != nil && b.ShopifyOrderID != nil &&
			*existing.ShopifyOrderID == *b.ShopifyOrderID &&
			*existing.ShopifyLineItemID == *b.ShopifyLineItemID {
			return repository.ErrDuplicateOrder
		}
	}
	t.store.nextID++
	b.ID = t.store.nextID
	t.staged = append(t.staged, *b)
	return nil
}

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func confirmed(roomID uint64, start, end string) model.Booking {
	return model.Booking{RoomID: roomID, StartDate: day(start), EndDate: day(end), Status: model.BookingConfirmed}
}
