package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-booking-sync/internal/config"
	"github.com/iliyamo/room-booking-sync/internal/handler"
	"github.com/iliyamo/room-booking-sync/internal/middleware"
	"github.com/iliyamo/room-booking-sync/internal/model"
	"github.com/iliyamo/room-booking-sync/internal/repository"
	"github.com/iliyamo/room-booking-sync/internal/service"
	"github.com/iliyamo/room-booking-sync/internal/utils"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type noRooms struct{}

func (noRooms) List(context.Context, string) ([]model.Room, error) { return nil, nil }
func (noRooms) Create(context.Context, *model.Room) error          { return nil }
func (noRooms) DeleteByProductID(context.Context, int64) error     { return nil }

type noBookings struct{}

func (noBookings) List(context.Context, repository.BookingFilter) ([]repository.BookingListItem, error) {
	return nil, nil
}

type staticDates []string

func (s staticDates) UnavailableDates(context.Context, string, string, string) ([]string, error) {
	return s, nil
}

type noopIngestor struct{}

func (noopIngestor) Ingest(context.Context, service.Delivery, []byte) (*service.IngestResult, error) {
	return &service.IngestResult{}, nil
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	auth, err := service.NewAuthenticator("secret")
	require.NoError(t, err)

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	RegisterRoutes(e, okPinger{})
	RegisterPublic(e, handler.NewAvailabilityHandler(staticDates{"2024-03-05"}, nil))
	RegisterWebhooks(e, handler.NewWebhookHandler(noopIngestor{}, nil), middleware.VerifyWebhook(auth, 1<<20, nil))
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: "jwt"}, nil))
	RegisterAdmin(e, handler.NewAdminHandler(noRooms{}, noBookings{}, nil), "jwt")
	return e
}

func TestRoutes(t *testing.T) {
	e := newServer(t)
	admin, err := utils.NewAccessToken("jwt", "admin@example.com", utils.RoleAdmin, 5)
	require.NoError(t, err)

	cases := []struct {
		method, target, auth string
		status               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/availability?room_id=1&month=3&year=2024", "", http.StatusOK},
		{http.MethodPost, "/webhooks/order_paid", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/auth/login", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/admin/rooms", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/admin/rooms", "Bearer " + admin.Token, http.StatusOK},
		{http.MethodGet, "/v1/admin/bookings", "Bearer " + admin.Token, http.StatusOK},
		{http.MethodDelete, "/v1/admin/rooms/7", "Bearer " + admin.Token, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		if tc.auth != "" {
			req.Header.Set(echo.HeaderAuthorization, tc.auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.target)
	}
}
