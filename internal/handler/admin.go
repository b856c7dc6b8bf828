package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/model"
	"github.com/iliyamo/room-booking-sync/internal/repository"
	"github.com/iliyamo/room-booking-sync/internal/service"
)

// RoomStore is the room catalogue managed by admins.
type RoomStore interface {
	List(ctx context.Context, search string) ([]model.Room, error)
	Create(ctx context.Context, room *model.Room) error
	DeleteByProductID(ctx context.Context, productID int64) error
}

// BookingLister lists bookings for the admin dashboard.
type BookingLister interface {
	List(ctx context.Context, f repository.BookingFilter) ([]repository.BookingListItem, error)
}

// AdminHandler bundles the admin endpoints for rooms and bookings.
type AdminHandler struct {
	Rooms    RoomStore
	Bookings BookingLister
	log      *zap.Logger
}

func NewAdminHandler(rooms RoomStore, bookings BookingLister, log *zap.Logger) *AdminHandler {
	if rooms == nil || bookings == nil {
		panic("nil store passed to NewAdminHandler")
	}
	return &AdminHandler{Rooms: rooms, Bookings: bookings, log: log}
}

// ----- DTOs -----

type roomResp struct {
	ID               uint64 `json:"id"`
	ShopifyProductID int64  `json:"shopify_product_id"`
	Name             string `json:"name"`
	MaxGuests        uint32 `json:"max_guests"`
	Area             uint32 `json:"area"`
}

func toRoomResp(r model.Room) roomResp {
	return roomResp{ID: r.ID, ShopifyProductID: r.ShopifyProductID, Name: r.Name, MaxGuests: r.MaxGuests, Area: r.Area}
}

type createRoomReq struct {
	ShopifyProductID int64  `json:"shopify_product_id" validate:"required,gt=0"`
	Name             string `json:"name" validate:"required,max=255"`
	MaxGuests        uint32 `json:"max_guests" validate:"required,gte=1,lte=100"`
	Area             uint32 `json:"area"`
}

// ListRooms handles GET /v1/admin/rooms?q=.
func (h *AdminHandler) ListRooms(c echo.Context) error {
	rooms, err := h.Rooms.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return writeError(c, h.log, service.InternalError(err, "failed to list rooms"))
	}
	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// CreateRoom handles POST /v1/admin/rooms.
func (h *AdminHandler) CreateRoom(c echo.Context) error {
	var req createRoomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.log, err)
	}

	room := model.Room{ShopifyProductID: req.ShopifyProductID, Name: req.Name, MaxGuests: req.MaxGuests, Area: req.Area}
	if err := h.Rooms.Create(c.Request().Context(), &room); err != nil {
		if errors.Is(err, repository.ErrDuplicateRoom) {
			return writeError(c, h.log, service.ConflictError(err,
				"room with shopify_product_id=%d already exists", req.ShopifyProductID))
		}
		return writeError(c, h.log, service.InternalError(err, "failed to create room"))
	}
	return c.JSON(http.StatusCreated, toRoomResp(room))
}

// DeleteRoom handles DELETE /v1/admin/rooms/:product_id. Rooms with
// bookings cannot be deleted.
func (h *AdminHandler) DeleteRoom(c echo.Context) error {
	pid, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil || pid <= 0 {
		return writeError(c, h.log, service.ValidationError("invalid product_id %q", c.Param("product_id")))
	}
	switch err := h.Rooms.DeleteByProductID(c.Request().Context(), pid); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrRoomNotFound):
		return writeError(c, h.log, service.NotFoundError("room with shopify_product_id=%d not found", pid))
	case errors.Is(err, repository.ErrConflict):
		return writeError(c, h.log, service.ConflictError(err, "room with shopify_product_id=%d has bookings", pid))
	default:
		return writeError(c, h.log, service.InternalError(err, "failed to delete room"))
	}
}

// ListBookings handles GET /v1/admin/bookings?status=&room_id=&q=.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	var f repository.BookingFilter
	if s := strings.ToLower(strings.TrimSpace(c.QueryParam("status"))); s != "" {
		f.Status = model.BookingStatus(s)
		if !f.Status.Valid() {
			return writeError(c, h.log, service.ValidationError("invalid status %q", s))
		}
	}
	if s := strings.TrimSpace(c.QueryParam("room_id")); s != "" {
		pid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return writeError(c, h.log, service.ValidationError("invalid room_id %q: must be an integer", s))
		}
		f.RoomProductID = pid
	}
	f.Search = c.QueryParam("q")

	items, err := h.Bookings.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.log, service.InternalError(err, "failed to list bookings"))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}
