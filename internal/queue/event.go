// Package queue publishes booking events to RabbitMQ and runs the background
// consumer that records them in the booking log.
package queue

import (
	"time"

	"github.com/iliyamo/room-booking-sync/internal/service"
)

// BookingQueue is the durable queue booking events are routed to.
const BookingQueue = "booking.confirmed"

// BookingConfirmedEvent is published once a booking created from a paid
// order has been committed. It carries enough for downstream consumers to
// log or notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID     uint64 `json:"booking_id"`
	OrderID       int64  `json:"order_id"`
	LineItemID    int64  `json:"line_item_id"`
	ProductID     int64  `json:"product_id"`
	RoomName      string `json:"room_name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	CustomerEmail string `json:"customer_email"`
	DeliveryID    string `json:"delivery_id,omitempty"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// EventFromAudit builds the broker message for a booking.created audit event.
func EventFromAudit(ev service.AuditEvent) BookingConfirmedEvent {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return BookingConfirmedEvent{
		BookingID:     ev.BookingID,
		OrderID:       ev.OrderID,
		LineItemID:    ev.LineItemID,
		ProductID:     ev.ProductID,
		RoomName:      ev.RoomName,
		StartDate:     ev.StartDate,
		EndDate:       ev.EndDate,
		CustomerEmail: ev.CustomerEmail,
		DeliveryID:    ev.DeliveryID,
		ConfirmedAt:   at.UTC().Format(time.RFC3339),
	}
}
