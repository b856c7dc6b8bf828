package model

// Room is a reservable unit. It is sold on the storefront as a product and
// identified externally by that product's ID.
//
// Fields:
//  ID               – primary key identifier.
//  ShopifyProductID – storefront product ID, unique and immutable.
//  Name             – display name.
//  MaxGuests        – maximum guest count (at least 1).
//  Area             – area in square meters.
type Room struct {
	ID               uint64 // rooms.id
	ShopifyProductID int64  // rooms.shopify_product_id
	Name             string // rooms.name
	MaxGuests        uint32 // rooms.max_guests
	Area             uint32 // rooms.area
}
