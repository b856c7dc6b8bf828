package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/room-booking-sync/internal/model"
	"github.com/iliyamo/room-booking-sync/internal/repository"
)

// OrderStore is the write side of the reservation store. InTx must run fn
// in one transaction and discard every write when fn returns an error. It
// may run fn again after a lock conflict.
type OrderStore interface {
	InTx(ctx context.Context, fn func(tx repository.OrderTx) error) error
}

// Delivery describes one webhook delivery, for audit purposes.
type Delivery struct {
	ID    string
	Topic string
}

// IngestResult summarises a successfully ingested order.
type IngestResult struct {
	OrderID           int64
	CreatedBookingIDs []uint64
	SkippedItems      int
}

// OrderIngestor turns authenticated "orders/paid" webhook bodies into
// confirmed bookings.
type OrderIngestor struct {
	store  OrderStore
	audit  AuditSink
	tracer trace.Tracer
}

// NewOrderIngestor returns an ingestor writing to store and reporting to
// audit. A nil audit sink discards events.
func NewOrderIngestor(store OrderStore, audit AuditSink) *OrderIngestor {
	if audit == nil {
		audit = nopSink{}
	}
	return &OrderIngestor{store: store, audit: audit, tracer: otel.Tracer(tracerName)}
}

// Ingest parses raw and creates one confirmed booking per reservable line
// item. Items without a product ID or stay dates are skipped, as are items
// whose product is not a known room. All bookings of the order are written
// in one transaction: a bad stay date, a store failure or a duplicate
// order aborts the whole order and nothing is kept.
func (p *OrderIngestor) Ingest(ctx context.Context, d Delivery, raw []byte) (*IngestResult, error) {
	ctx, span := p.tracer.Start(ctx, "webhook.ingest_order")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.delivery_id", d.ID), attribute.String("webhook.topic", d.Topic))

	order, err := decodeOrder(raw)
	if err != nil {
		p.reject(ctx, span, d, 0, err)
		return nil, err
	}
	orderID := order.ID.Value
	email := order.customerEmail()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int("order.line_items", len(order.LineItems)),
	)

	keys := lineItemKeys(order.LineItems)
	var (
		result *IngestResult
		events []AuditEvent
	)
	err = p.store.InTx(ctx, func(tx repository.OrderTx) error {
		result = &IngestResult{OrderID: orderID, CreatedBookingIDs: []uint64{}}
		events = events[:0]

		exists, err := tx.OrderExists(ctx, orderID)
		if err != nil {
			return InternalError(err, "failed to check order %d", orderID)
		}
		if exists {
			return ConflictError(nil, "order %d has already been ingested", orderID)
		}

		for i := range order.LineItems {
			ev, err := p.ingestItem(ctx, tx, d, orderID, keys[i], email, &order.LineItems[i])
			if err != nil {
				return err
			}
			events = append(events, ev)
			if ev.Type != EventBookingCreated {
				result.SkippedItems++
				continue
			}
			result.CreatedBookingIDs = append(result.CreatedBookingIDs, ev.BookingID)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == 0 {
			err = InternalError(err, "failed to ingest order %d", orderID)
		}
		p.reject(ctx, span, d, orderID, err)
		return nil, err
	}

	// Per-item events describe committed work only.
	for _, ev := range events {
		p.audit.Record(ctx, ev)
	}
	span.SetAttributes(
		attribute.Int("order.bookings_created", len(result.CreatedBookingIDs)),
		attribute.Int("order.items_skipped", result.SkippedItems),
	)
	return result, nil
}

// lineItemKeys returns the key each line item is stored under. Storefront
// line item IDs are used when every item carries a distinct one; otherwise
// every item of the order is keyed by its 1-based position, so a
// synthesized key never shares a namespace with a real ID.
func lineItemKeys(items []lineItem) []int64 {
	keys := make([]int64, len(items))
	seen := make(map[int64]bool, len(items))
	for i := range items {
		id := items[i].ID
		if !id.present() || seen[id.Value] {
			for j := range keys {
				keys[j] = int64(j + 1)
			}
			return keys
		}
		seen[id.Value] = true
		keys[i] = id.Value
	}
	return keys
}

// ingestItem handles one line item and returns the event to record once
// the order commits: booking.created, or item_skipped / room_unresolved
// when the item does not produce a booking.
func (p *OrderIngestor) ingestItem(ctx context.Context, tx repository.OrderTx, d Delivery, orderID, key int64, email string, item *lineItem) (AuditEvent, error) {
	props := item.properties()
	checkIn, checkOut := props[PropertyCheckIn], props[PropertyCheckOut]
	if !item.ProductID.present() || checkIn == "" || checkOut == "" {
		return AuditEvent{
			Type: EventItemSkipped, DeliveryID: d.ID, OrderID: orderID, LineItemID: key,
			ProductID: item.ProductID.Value, Reason: "not a reservable item", At: time.Now().UTC(),
		}, nil
	}
	productID := item.ProductID.Value

	room, err := tx.RoomByProductID(ctx, productID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return AuditEvent{
			Type: EventRoomUnresolved, DeliveryID: d.ID, OrderID: orderID, LineItemID: key,
			ProductID: productID, Reason: "no room for product", At: time.Now().UTC(),
		}, nil
	}
	if err != nil {
		return AuditEvent{}, InternalError(err, "failed to resolve room for product %d", productID)
	}

	start, err := model.ParseDate(checkIn)
	if err != nil {
		return AuditEvent{}, InternalError(err, "line item %d: invalid %s date %q", key, PropertyCheckIn, checkIn)
	}
	end, err := model.ParseDate(checkOut)
	if err != nil {
		return AuditEvent{}, InternalError(err, "line item %d: invalid %s date %q", key, PropertyCheckOut, checkOut)
	}
	if !end.After(start) {
		return AuditEvent{}, InternalError(nil, "line item %d: %s %s is not after %s %s",
			key, PropertyCheckOut, checkOut, PropertyCheckIn, checkIn)
	}

	oid, lid := orderID, key
	b := &model.Booking{
		RoomID:            room.ID,
		StartDate:         start,
		EndDate:           end,
		CustomerEmail:     email,
		ShopifyOrderID:    &oid,
		ShopifyLineItemID: &lid,
		Status:            model.BookingConfirmed,
	}
	if err := tx.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return AuditEvent{}, ConflictError(err, "order %d has already been ingested", orderID)
		}
		return AuditEvent{}, InternalError(err, "failed to create booking for line item %d", key)
	}
	return AuditEvent{
		Type:          EventBookingCreated,
		DeliveryID:    d.ID,
		OrderID:       orderID,
		LineItemID:    key,
		ProductID:     productID,
		BookingID:     b.ID,
		RoomName:      room.Name,
		CustomerEmail: email,
		StartDate:     model.FormatDate(b.StartDate),
		EndDate:       model.FormatDate(b.EndDate),
		At:            time.Now().UTC(),
	}, nil
}

func (p *OrderIngestor) reject(ctx context.Context, span trace.Span, d Delivery, orderID int64, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, KindOf(err).String())
	p.audit.Record(ctx, AuditEvent{
		Type: EventOrderRejected, DeliveryID: d.ID, OrderID: orderID,
		Reason: err.Error(), At: time.Now().UTC(),
	})
}
