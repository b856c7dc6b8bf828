package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// Booking reserves one room for the half-open interval [StartDate, EndDate).
// The guest checks out on EndDate, so that day is free for the next guest.
// Only confirmed bookings count toward availability.
//
// Fields:
//  ID                – primary key identifier.
//  RoomID            – owning room (rooms.id).
//  StartDate         – check-in day, UTC midnight.
//  EndDate           – check-out day (exclusive), UTC midnight.
//  CustomerEmail     – email of the paying customer.
//  ShopifyOrderID    – storefront order ID, if the booking came from an order.
//  ShopifyLineItemID – line item key within that order.
//  Status            – pending, confirmed or cancelled.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Booking struct {
	ID                uint64        // bookings.id
	RoomID            uint64        // bookings.room_id
	StartDate         time.Time     // bookings.start_date
	EndDate           time.Time     // bookings.end_date
	CustomerEmail     string        // bookings.customer_email
	ShopifyOrderID    *int64        // bookings.shopify_order_id (nullable)
	ShopifyLineItemID *int64        // bookings.shopify_line_item_id (nullable)
	Status            BookingStatus // bookings.status
	CreatedAt         time.Time     // bookings.created_at
	UpdatedAt         time.Time     // bookings.updated_at
}
