package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Line item property names the storefront theme attaches to room products.
const (
	PropertyCheckIn  = "Check-in"
	PropertyCheckOut = "Check-out"
)

// orderPayload is the subset of the storefront "orders/paid" body the
// pipeline reads. Unknown fields are ignored.
type orderPayload struct {
	ID        flexInt        `json:"id"`
	Customer  *orderCustomer `json:"customer"`
	LineItems []lineItem     `json:"line_items"`
}

type orderCustomer struct {
	Email string `json:"email"`
}

type lineItem struct {
	ID         flexInt        `json:"id"`
	ProductID  flexInt        `json:"product_id"`
	Properties []itemProperty `json:"properties"`
}

type itemProperty struct {
	Name  string     `json:"name"`
	Value flexString `json:"value"`
}

func (o *orderPayload) customerEmail() string {
	if o.Customer == nil {
		return ""
	}
	return strings.TrimSpace(o.Customer.Email)
}

// properties returns the item's properties by name; later duplicates win.
func (li *lineItem) properties() map[string]string {
	props := make(map[string]string, len(li.Properties))
	for _, p := range li.Properties {
		if p.Name == "" {
			continue
		}
		props[p.Name] = strings.TrimSpace(string(p.Value))
	}
	return props
}

// flexInt decodes storefront IDs, which arrive as JSON numbers or, from
// some clients, as numeric strings. null and "" leave it unset.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("id %s is not an integer", raw)
	}
	f.Value, f.Set = n, true
	return nil
}

// present reports whether the ID was supplied and non-zero.
func (f flexInt) present() bool { return f.Set && f.Value != 0 }

// flexString accepts any JSON scalar as a property value; non-strings keep
// their literal text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(bytes.TrimSpace(b))
	return nil
}

// decodeOrder parses and validates the order envelope. A body that is not
// JSON is a malformed payload; a decodable body missing the order ID, the
// customer email or any line item is a validation error.
func decodeOrder(raw []byte) (*orderPayload, error) {
	var o orderPayload
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, MalformedPayloadError(err, "request body is not a valid order JSON document")
	}
	var missing []string
	if !o.ID.present() {
		missing = append(missing, "id")
	}
	if o.customerEmail() == "" {
		missing = append(missing, "customer.email")
	}
	if len(o.LineItems) == 0 {
		missing = append(missing, "line_items")
	}
	if len(missing) > 0 {
		return nil, ValidationError("missing required order field(s): %s", strings.Join(missing, ", "))
	}
	return &o, nil
}
