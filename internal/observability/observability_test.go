package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/room-booking-sync/internal/service"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "dev", ""} {
		log, err := NewLogger(env)
		require.NoError(t, err, env)
		require.NotNil(t, log)
	}
	prod, _ := NewLogger("production")
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	dev, _ := NewLogger("dev")
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("http://collector:4318"), 1)
	assert.Len(t, exporterOptions("collector:4318"), 2)
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Record(context.Background(), service.AuditEvent{
		Type: service.EventBookingCreated, OrderID: 7, LineItemID: 1, BookingID: 100,
		RoomName: "Loft", StartDate: "2024-07-01", EndDate: "2024-07-03",
		At: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	sink.Record(context.Background(), service.AuditEvent{
		Type: service.EventItemSkipped, OrderID: 7, LineItemID: 2, Reason: "not a reservable item",
	})

	require.Equal(t, 2, logs.Len())
	created, skipped := logs.All()[0], logs.All()[1]

	assert.Equal(t, zapcore.InfoLevel, created.Level)
	assert.Equal(t, "audit", created.LoggerName)
	assert.Equal(t, service.EventBookingCreated, created.Message)
	assert.Equal(t, uint64(100), created.ContextMap()["booking_id"])
	assert.NotContains(t, created.ContextMap(), "reason")

	assert.Equal(t, zapcore.WarnLevel, skipped.Level)
	assert.Equal(t, "not a reservable item", skipped.ContextMap()["reason"])
	assert.NotContains(t, skipped.ContextMap(), "booking_id")
}

func TestZapSinkTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid}))

	sink.Record(ctx, service.AuditEvent{Type: service.EventOrderRejected, OrderID: 1, Reason: "conflict"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", logs.All()[0].ContextMap()["trace_id"])
}
