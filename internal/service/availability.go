package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/room-booking-sync/internal/model"
	"github.com/iliyamo/room-booking-sync/internal/repository"
)

const tracerName = "github.com/iliyamo/room-booking-sync/internal/service"

// Calendar years accepted by availability queries.
const (
	minYear = 1
	maxYear = 9999
)

// AvailabilityStore is the read side of the reservation store used by
// availability queries.
type AvailabilityStore interface {
	RoomByProductID(ctx context.Context, productID int64) (*model.Room, error)
	ConfirmedBookings(ctx context.Context, roomID uint64, first, last time.Time) ([]model.Booking, error)
}

// AvailabilityService answers which days of a month a room is booked.
// It is read-only and holds no state between calls.
type AvailabilityService struct {
	store  AvailabilityStore
	tracer trace.Tracer
}

// NewAvailabilityService returns a service reading from store.
func NewAvailabilityService(store AvailabilityStore) *AvailabilityService {
	return &AvailabilityService{store: store, tracer: otel.Tracer(tracerName)}
}

// UnavailableDates returns the ascending, de-duplicated YYYY-MM-DD days of
// the given month on which the room identified by its storefront product
// ID is occupied by a confirmed booking. The raw query values are parsed
// here so that a missing parameter and an invalid one are reported
// differently.
func (s *AvailabilityService) UnavailableDates(ctx context.Context, roomID, month, year string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "availability.unavailable_dates")
	defer span.End()

	productID, m, y, err := parseAvailabilityParams(roomID, month, year)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("room.product_id", productID),
		attribute.Int("availability.month", m),
		attribute.Int("availability.year", y),
	)

	room, err := s.store.RoomByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, NotFoundError("room with shopify_product_id=%d not found", productID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "room lookup failed")
		return nil, InternalError(err, "failed to load room")
	}

	first, last, err := MonthBounds(y, m)
	if err != nil {
		return nil, err
	}

	bookings, err := s.store.ConfirmedBookings(ctx, room.ID, first, last)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking query failed")
		return nil, InternalError(err, "failed to load bookings")
	}
	dates := BookedDates(first, last, bookings)
	span.SetAttributes(attribute.Int("availability.booked_days", len(dates)))
	return dates, nil
}

func parseAvailabilityParams(roomID, month, year string) (int64, int, int, error) {
	roomID, month, year = strings.TrimSpace(roomID), strings.TrimSpace(month), strings.TrimSpace(year)
	var missing []string
	if roomID == "" {
		missing = append(missing, "room_id")
	}
	if month == "" {
		missing = append(missing, "month")
	}
	if year == "" {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return 0, 0, 0, ValidationError("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	productID, err := strconv.ParseInt(roomID, 10, 64)
	if err != nil {
		return 0, 0, 0, ValidationError("invalid room_id %q: must be an integer", roomID)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return 0, 0, 0, ValidationError("invalid month %q: must be an integer", month)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, 0, 0, ValidationError("invalid year %q: must be an integer", year)
	}
	return productID, m, y, nil
}

// MonthBounds returns the first and last calendar day of the month as UTC
// midnights. Months outside 1-12 and years outside 1-9999 are validation
// errors.
func MonthBounds(year, month int) (first, last time.Time, err error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, ValidationError("invalid month %d: must be between 1 and 12", month)
	}
	if year < minYear || year > maxYear {
		return time.Time{}, time.Time{}, ValidationError("invalid year %d: must be between %d and %d", year, minYear, maxYear)
	}
	first = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	// day 0 of the next month is the last day of this one
	last = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return first, last, nil
}

// BookedDates expands each booking's half-open interval into days, keeps
// those within [first, last] and returns them sorted without duplicates.
// Status is not inspected; callers pass confirmed bookings only.
func BookedDates(first, last time.Time, bookings []model.Booking) []string {
	first, last = model.DayOf(first), model.DayOf(last)
	seen := make(map[string]struct{})
	for _, b := range bookings {
		d := model.DayOf(b.StartDate)
		end := model.DayOf(b.EndDate)
		if d.Before(first) {
			d = first
		}
		for ; d.Before(end) && !d.After(last); d = d.AddDate(0, 0, 1) {
			seen[model.FormatDate(d)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
