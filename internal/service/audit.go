package service

import (
	"context"
	"time"
)

// Audit event types written by the core.
const (
	EventBookingCreated = "booking.created"
	EventItemSkipped    = "webhook.item_skipped"
	EventRoomUnresolved = "webhook.room_unresolved"
	EventOrderRejected  = "webhook.order_rejected"
)

// AuditEvent is a structured record of something the core did or declined
// to do. Fields that do not apply to an event type are left zero.
type AuditEvent struct {
	Type          string
	DeliveryID    string
	OrderID       int64
	LineItemID    int64
	ProductID     int64
	BookingID     uint64
	RoomName      string
	CustomerEmail string
	StartDate     string
	EndDate       string
	Reason        string
	At            time.Time
}

// AuditSink receives audit events. Implementations must not block for
// long and must not fail the caller; errors are theirs to report.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// AuditFunc adapts a plain function to AuditSink.
type AuditFunc func(ctx context.Context, ev AuditEvent)

func (f AuditFunc) Record(ctx context.Context, ev AuditEvent) { f(ctx, ev) }

// MultiSink fans an event out to every sink in order.
type MultiSink []AuditSink

func (m MultiSink) Record(ctx context.Context, ev AuditEvent) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, ev)
		}
	}
}

type nopSink struct{}

func (nopSink) Record(context.Context, AuditEvent) {}
