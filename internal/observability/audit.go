package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/room-booking-sync/internal/service"
)

// ZapSink writes audit events as structured log entries. Skips and
// rejections are logged at warn level, everything else at info.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink returns an audit sink writing to log.
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log.Named("audit")}
}

// Record implements service.AuditSink.
func (s *ZapSink) Record(ctx context.Context, ev service.AuditEvent) {
	level := zapcore.InfoLevel
	switch ev.Type {
	case service.EventItemSkipped, service.EventRoomUnresolved, service.EventOrderRejected:
		level = zapcore.WarnLevel
	}
	ce := s.log.Check(level, ev.Type)
	if ce == nil {
		return
	}
	ce.Write(auditFields(ctx, ev)...)
}

func auditFields(ctx context.Context, ev service.AuditEvent) []zap.Field {
	fields := make([]zap.Field, 0, 12)
	add := func(f zap.Field, set bool) {
		if set {
			fields = append(fields, f)
		}
	}
	add(zap.String("delivery_id", ev.DeliveryID), ev.DeliveryID != "")
	add(zap.Int64("order_id", ev.OrderID), ev.OrderID != 0)
	add(zap.Int64("line_item_id", ev.LineItemID), ev.LineItemID != 0)
	add(zap.Int64("product_id", ev.ProductID), ev.ProductID != 0)
	add(zap.Uint64("booking_id", ev.BookingID), ev.BookingID != 0)
	add(zap.String("room", ev.RoomName), ev.RoomName != "")
	add(zap.String("customer_email", ev.CustomerEmail), ev.CustomerEmail != "")
	add(zap.String("start_date", ev.StartDate), ev.StartDate != "")
	add(zap.String("end_date", ev.EndDate), ev.EndDate != "")
	add(zap.String("reason", ev.Reason), ev.Reason != "")
	add(zap.Time("at", ev.At), !ev.At.IsZero())
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return fields
}
