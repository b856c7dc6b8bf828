package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/middleware"
	"github.com/iliyamo/room-booking-sync/internal/service"
)

// OrderIngestor is the pipeline behind the paid-order webhook.
type OrderIngestor interface {
	Ingest(ctx context.Context, d service.Delivery, raw []byte) (*service.IngestResult, error)
}

// WebhookHandler receives storefront webhooks. It must be mounted behind
// middleware.VerifyWebhook, which authenticates the raw body.
type WebhookHandler struct {
	ingestor OrderIngestor
	log      *zap.Logger
}

func NewWebhookHandler(ingestor OrderIngestor, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor, log: log}
}

type webhookResp struct {
	Status          string   `json:"status"`
	BookingsCreated []uint64 `json:"bookings_created"`
}

// OrderPaid handles POST /webhooks/order_paid and answers 201 with the IDs
// of the bookings it created (possibly none).
func (h *WebhookHandler) OrderPaid(c echo.Context) error {
	raw := middleware.RawBody(c)
	if raw == nil {
		// Mounted without the signature gate: refuse rather than trust the body.
		return writeError(c, h.log, service.AuthenticationError("webhook was not authenticated"))
	}
	d := service.Delivery{
		ID:    c.Request().Header.Get(middleware.WebhookIDHeader),
		Topic: c.Request().Header.Get(middleware.TopicHeader),
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	res, err := h.ingestor.Ingest(c.Request().Context(), d, raw)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ids := res.CreatedBookingIDs
	if ids == nil {
		ids = []uint64{}
	}
	return c.JSON(http.StatusCreated, webhookResp{Status: "webhook processed", BookingsCreated: ids})
}
