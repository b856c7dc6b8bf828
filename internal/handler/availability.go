package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AvailabilityService is the calculator behind GET /availability.
type AvailabilityService interface {
	UnavailableDates(ctx context.Context, roomID, month, year string) ([]string, error)
}

// AvailabilityHandler serves the storefront calendar.
type AvailabilityHandler struct {
	svc AvailabilityService
	log *zap.Logger
}

func NewAvailabilityHandler(svc AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, log: log}
}

type availabilityResp struct {
	BookedDates []string `json:"booked_dates"`
}

// Get handles GET /availability?room_id=&month=&year=. room_id is the
// storefront product ID. The response lists every day of the month on
// which the room is occupied, sorted ascending.
func (h *AvailabilityHandler) Get(c echo.Context) error {
	dates, err := h.svc.UnavailableDates(c.Request().Context(),
		c.QueryParam("room_id"), c.QueryParam("month"), c.QueryParam("year"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if dates == nil {
		dates = []string{}
	}
	return c.JSON(http.StatusOK, availabilityResp{BookedDates: dates})
}
