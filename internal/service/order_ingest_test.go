package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-booking-sync/internal/model"
	"github.com/iliyamo/room-booking-sync/internal/repository"
)

type recordedEvents []AuditEvent

func (r *recordedEvents) sink() AuditSink {
	return AuditFunc(func(_ context.Context, ev AuditEvent) { *r = append(*r, ev) })
}

func (r recordedEvents) ofType(typ string) []AuditEvent {
	var out []AuditEvent
	for _, ev := range r {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

const reservationOrder = `{
  "id": 820982911946154508,
  "customer": {"email": "guest@example.com"},
  "line_items": [
    {"id": 466157049, "product_id": 632910392,
     "properties": [{"name": "Check-in", "value": "2024-07-01"}, {"name": "Check-out", "value": "2024-07-04"}]}
  ]
}`

func newIngestFixture() (*memStore, *recordedEvents, *OrderIngestor) {
	store := newMemStore(
		model.Room{ID: 1, ShopifyProductID: 632910392, Name: "Sea View Double", MaxGuests: 2},
		model.Room{ID: 2, ShopifyProductID: 632910393, Name: "Attic Single", MaxGuests: 1},
	)
	events := &recordedEvents{}
	return store, events, NewOrderIngestor(store, events.sink())
}

func TestIngestCreatesConfirmedBooking(t *testing.T) {
	store, events, ing := newIngestFixture()

	res, err := ing.Ingest(context.Background(), Delivery{ID: "d-1", Topic: "orders/paid"}, []byte(reservationOrder))
	require.NoError(t, err)
	require.Len(t, res.CreatedBookingIDs, 1)
	assert.Equal(t, int64(820982911946154508), res.OrderID)

	require.Len(t, store.bookings, 1)
	b := store.bookings[0]
	assert.Equal(t, res.CreatedBookingIDs[0], b.ID)
	assert.Equal(t, uint64(1), b.RoomID)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, "guest@example.com", b.CustomerEmail)
	require.NotNil(t, b.ShopifyOrderID)
	assert.Equal(t, int64(820982911946154508), *b.ShopifyOrderID)
	assert.Equal(t, int64(466157049), *b.ShopifyLineItemID)
	assert.Equal(t, "2024-07-01", model.FormatDate(b.StartDate))
	assert.Equal(t, "2024-07-04", model.FormatDate(b.EndDate))

	created := events.ofType(EventBookingCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "Sea View Double", created[0].RoomName)
	assert.Equal(t, "d-1", created[0].DeliveryID)
	assert.Equal(t, b.ID, created[0].BookingID)
}

func TestIngestSkipsMerchandise(t *testing.T) {
	store, events, ing := newIngestFixture()
	body := `{"id": 42, "customer": {"email": "g@example.com"}, "line_items": [
	  {"id": 1, "product_id": 9001, "properties": []},
	  {"id": 2, "product_id": 632910393, "properties": [
	    {"name": "Check-in", "value": "2024-08-10"}, {"name": "Check-out", "value": "2024-08-11"}, {"name": "Gift wrap", "value": "no"}]}
	]}`

	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.NoError(t, err)
	assert.Len(t, res.CreatedBookingIDs, 1)
	assert.Equal(t, 1, res.SkippedItems)
	require.Len(t, store.bookings, 1)
	assert.Equal(t, uint64(2), store.bookings[0].RoomID)
	assert.Len(t, events.ofType(EventItemSkipped), 1)
}

func TestIngestMerchandiseOnlyOrder(t *testing.T) {
	store, _, ing := newIngestFixture()
	body := `{"id": 43, "customer": {"email": "g@example.com"}, "line_items": [{"product_id": 9001}]}`

	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.NoError(t, err)
	assert.NotNil(t, res.CreatedBookingIDs)
	assert.Empty(t, res.CreatedBookingIDs)
	assert.Empty(t, store.bookings)
}

func TestIngestSkipsUnknownRoom(t *testing.T) {
	store, events, ing := newIngestFixture()
	body := `{"id": 44, "customer": {"email": "g@example.com"}, "line_items": [
	  {"product_id": 123, "properties": [{"name": "Check-in", "value": "2024-08-10"}, {"name": "Check-out", "value": "2024-08-12"}]}]}`

	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.NoError(t, err)
	assert.Empty(t, res.CreatedBookingIDs)
	assert.Empty(t, store.bookings)
	unresolved := events.ofType(EventRoomUnresolved)
	require.Len(t, unresolved, 1)
	assert.Equal(t, int64(123), unresolved[0].ProductID)
}

func TestIngestMultipleRoomsInOneOrder(t *testing.T) {
	store, _, ing := newIngestFixture()
	body := `{"id": "45", "customer": {"email": "g@example.com"}, "line_items": [
	  {"product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]},
	  {"product_id": "632910393", "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]}]}`

	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.NoError(t, err)
	assert.Len(t, res.CreatedBookingIDs, 2)
	require.Len(t, store.bookings, 2)
	assert.Equal(t, int64(1), *store.bookings[0].ShopifyLineItemID)
	assert.Equal(t, int64(2), *store.bookings[1].ShopifyLineItemID)
}

func TestIngestPositionKeysDoNotCollideWithItemIDs(t *testing.T) {
	store, _, ing := newIngestFixture()
	body := `{"id": 900, "customer": {"email": "g@example.com"}, "line_items": [
	  {"product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]},
	  {"id": 1, "product_id": 632910393, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]}]}`

	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.NoError(t, err)
	assert.Len(t, res.CreatedBookingIDs, 2)
	require.Len(t, store.bookings, 2)
	assert.Equal(t, int64(1), *store.bookings[0].ShopifyLineItemID)
	assert.Equal(t, int64(2), *store.bookings[1].ShopifyLineItemID)

	_, err = ing.Ingest(context.Background(), Delivery{}, []byte(body))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Len(t, store.bookings, 2)
}

func TestLineItemKeys(t *testing.T) {
	item := func(id int64) lineItem { return lineItem{ID: flexInt{Value: id, Set: id != 0}} }

	assert.Equal(t, []int64{466157049, 7}, lineItemKeys([]lineItem{item(466157049), item(7)}))
	assert.Equal(t, []int64{1, 2, 3}, lineItemKeys([]lineItem{item(3), item(0), item(1)}))
	assert.Equal(t, []int64{1, 2}, lineItemKeys([]lineItem{item(5), item(5)}))
	assert.Empty(t, lineItemKeys(nil))
}

func TestIngestRejectsInvalidEnvelope(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind Kind
		msg  string
	}{
		{"not json", `{"id": 1,`, KindMalformedPayload, ""},
		{"array body", `[1,2]`, KindMalformedPayload, ""},
		{"no line items", `{"id": 1, "customer": {"email": "g@example.com"}}`, KindValidation,
			"missing required order field(s): line_items"},
		{"empty line items", `{"id": 1, "customer": {"email": "g@example.com"}, "line_items": []}`, KindValidation,
			"missing required order field(s): line_items"},
		{"no customer", `{"id": 1, "line_items": [{"product_id": 1}]}`, KindValidation,
			"missing required order field(s): customer.email"},
		{"nothing", `{}`, KindValidation,
			"missing required order field(s): id, customer.email, line_items"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, events, ing := newIngestFixture()
			_, err := ing.Ingest(context.Background(), Delivery{}, []byte(tc.body))
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			if tc.msg != "" {
				assert.EqualError(t, err, tc.msg)
			}
			assert.Empty(t, store.bookings)
			assert.Len(t, events.ofType(EventOrderRejected), 1)
		})
	}
}

func TestIngestBadDateRollsBackOrder(t *testing.T) {
	store, events, ing := newIngestFixture()
	body := `{"id": 46, "customer": {"email": "g@example.com"}, "line_items": [
	  {"product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]},
	  {"product_id": 632910393, "properties": [{"name": "Check-in", "value": "01/09/2024"}, {"name": "Check-out", "value": "2024-09-03"}]}]}`

	_, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Empty(t, store.bookings)
	assert.Empty(t, events.ofType(EventBookingCreated))
}

func TestIngestRejectsNonPositiveStay(t *testing.T) {
	store, _, ing := newIngestFixture()
	body := `{"id": 47, "customer": {"email": "g@example.com"}, "line_items": [
	  {"product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-03"}, {"name": "Check-out", "value": "2024-09-03"}]}]}`

	_, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "is not after")
	assert.Empty(t, store.bookings)
}

func TestIngestStoreFailureRollsBack(t *testing.T) {
	store, _, ing := newIngestFixture()
	store.failCreateAfter = 2
	body := `{"id": 48, "customer": {"email": "g@example.com"}, "line_items": [
	  {"product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]},
	  {"product_id": 632910393, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]}]}`

	_, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "failed to create booking for line item 2", svcErr.Message)
	assert.Empty(t, store.bookings)
}

func TestIngestRedeliveryConflicts(t *testing.T) {
	store, _, ing := newIngestFixture()

	_, err := ing.Ingest(context.Background(), Delivery{ID: "d-1"}, []byte(reservationOrder))
	require.NoError(t, err)
	_, err = ing.Ingest(context.Background(), Delivery{ID: "d-2"}, []byte(reservationOrder))
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Len(t, store.bookings, 1)
}

func TestIngestDuplicateCaughtByStoreConstraint(t *testing.T) {
	store, events, ing := newIngestFixture()

	_, err := ing.Ingest(context.Background(), Delivery{ID: "d-1"}, []byte(reservationOrder))
	require.NoError(t, err)

	// A racing delivery that passed the order check before the first one
	// committed is stopped by the (order, line item) constraint.
	store.missOrderCheck = true
	_, err = ing.Ingest(context.Background(), Delivery{ID: "d-2"}, []byte(reservationOrder))
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.ErrorIs(t, err, repository.ErrDuplicateOrder)
	assert.Len(t, store.bookings, 1)
	assert.Len(t, events.ofType(EventBookingCreated), 1)
	rejected := events.ofType(EventOrderRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "d-2", rejected[0].DeliveryID)
}

func TestIngestRolledBackOrderRecordsNoItemEvents(t *testing.T) {
	store, events, ing := newIngestFixture()
	body := `{"id": 49, "customer": {"email": "g@example.com"}, "line_items": [
	  {"id": 1, "product_id": 9001},
	  {"id": 2, "product_id": 123, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]},
	  {"id": 3, "product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-03"}, {"name": "Check-out", "value": "2024-09-01"}]}]}`

	_, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.Error(t, err)
	assert.Empty(t, store.bookings)
	assert.Empty(t, events.ofType(EventItemSkipped))
	assert.Empty(t, events.ofType(EventRoomUnresolved))
	assert.Len(t, *events, 1)
	assert.Equal(t, EventOrderRejected, (*events)[0].Type)
}

func TestIngestRecordsItemEventsAfterCommit(t *testing.T) {
	_, events, ing := newIngestFixture()
	body := `{"id": 50, "customer": {"email": "g@example.com"}, "line_items": [
	  {"id": 1, "product_id": 9001},
	  {"id": 2, "product_id": 632910392, "properties": [{"name": "Check-in", "value": "2024-09-01"}, {"name": "Check-out", "value": "2024-09-03"}]}]}`

	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedItems)
	require.Len(t, *events, 2)
	assert.Equal(t, EventItemSkipped, (*events)[0].Type)
	assert.Equal(t, int64(1), (*events)[0].LineItemID)
	assert.Equal(t, EventBookingCreated, (*events)[1].Type)
}

func TestIngestNilAuditSink(t *testing.T) {
	store := newMemStore(model.Room{ID: 1, ShopifyProductID: 632910392})
	ing := NewOrderIngestor(store, nil)
	res, err := ing.Ingest(context.Background(), Delivery{}, []byte(reservationOrder))
	require.NoError(t, err)
	assert.Len(t, res.CreatedBookingIDs, 1)
}
