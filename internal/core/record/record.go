// Package record models the upstream business records whose history is audited
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category tags a line item with its product family
type Category string

// Known product categories; upstream may add more, unknown ones are rejected on decode
const (
	CategoryModel Category = "model"
	CategoryData  Category = "data"
	CategoryApp   Category = "app"
)

// TrackedRecord is one observation of an upstream record's current state.
// The upstream system only keeps current state; this struct is what capture
// and backfill snapshot from
type TrackedRecord struct {
	RecordID       string    `json:"record_id"`
	Label          string    `json:"label"`
	AccountID      *string   `json:"account_id,omitempty"`
	AccountName    *string   `json:"account_name,omitempty"`
	Status         string    `json:"status"`
	Classification string    `json:"classification"`
	RequestedAt    time.Time `json:"requested_at,omitzero"`
	EffectiveAt    time.Time `json:"effective_at,omitzero"`
	LineItems      LineItems `json:"line_items,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// Rejected is an upstream payload that could not be decoded into a
// TrackedRecord. Fetches keep going past these; callers count them as
// per-record failures instead of aborting the batch
type Rejected struct {
	RecordID string // empty when the payload carried no usable id
	Err      error
}

// DateFields returns the record level date fields by name, skipping zeros
func (r TrackedRecord) DateFields() map[string]time.Time {
	out := map[string]time.Time{}
	if !r.RequestedAt.IsZero() {
		out["requested_at"] = r.RequestedAt
	}
	if !r.EffectiveAt.IsZero() {
		out["effective_at"] = r.EffectiveAt
	}
	return out
}

// LineItem is the per category variant of an entitlement line.
// Concrete types carry their own attribute sets; a generic map is deliberately
// not used so downstream consumers get compile time structure
type LineItem interface {
	Category() Category

	// Key identifies the line independent of payload ordering (SKU when
	// present, category otherwise)
	Key() string

	// DateFields returns the item's date fields by name, skipping zeros.
	// These feed change detection; other attributes do not
	DateFields() map[string]time.Time
}

// ModelItem is a model product entitlement line
type ModelItem struct {
	SKU              string    `json:"sku"`
	Edition          string    `json:"edition,omitempty"`
	Seats            int       `json:"seats,omitempty"`
	EntitlementStart time.Time `json:"entitlement_start,omitzero"`
	EntitlementEnd   time.Time `json:"entitlement_end,omitzero"`
}

// Category implements LineItem
func (ModelItem) Category() Category { return CategoryModel }

// Key implements LineItem
func (m ModelItem) Key() string { return keyOr(m.SKU, CategoryModel) }

// DateFields implements LineItem
func (m ModelItem) DateFields() map[string]time.Time {
	return dates(map[string]time.Time{
		"entitlement_start": m.EntitlementStart,
		"entitlement_end":   m.EntitlementEnd,
	})
}

// DataItem is a data product entitlement line
type DataItem struct {
	SKU            string    `json:"sku"`
	Dataset        string    `json:"dataset,omitempty"`
	RefreshCadence string    `json:"refresh_cadence,omitempty"`
	DeliveryStart  time.Time `json:"delivery_start,omitzero"`
	DeliveryEnd    time.Time `json:"delivery_end,omitzero"`
}

// Category implements LineItem
func (DataItem) Category() Category { return CategoryData }

// Key implements LineItem
func (d DataItem) Key() string { return keyOr(d.SKU, CategoryData) }

// DateFields implements LineItem
func (d DataItem) DateFields() map[string]time.Time {
	return dates(map[string]time.Time{
		"delivery_start": d.DeliveryStart,
		"delivery_end":   d.DeliveryEnd,
	})
}

// AppItem is an application product entitlement line
type AppItem struct {
	SKU          string    `json:"sku"`
	App          string    `json:"app,omitempty"`
	Tier         string    `json:"tier,omitempty"`
	LicenseStart time.Time `json:"license_start,omitzero"`
	LicenseEnd   time.Time `json:"license_end,omitzero"`
}

// Category implements LineItem
func (AppItem) Category() Category { return CategoryApp }

// Key implements LineItem
func (a AppItem) Key() string { return keyOr(a.SKU, CategoryApp) }

// DateFields implements LineItem
func (a AppItem) DateFields() map[string]time.Time {
	return dates(map[string]time.Time{
		"license_start": a.LicenseStart,
		"license_end":   a.LicenseEnd,
	})
}

// LineItems is a heterogeneous list of line items with envelope JSON coding
type LineItems []LineItem

// itemEnvelope is the wire shape: category tag plus the flattened item payload
type itemEnvelope struct {
	Category Category        `json:"category"`
	Item     json.RawMessage `json:"item"`
}

// MarshalJSON implements json.Marshaler
func (ls LineItems) MarshalJSON() ([]byte, error) {
	out := make([]itemEnvelope, 0, len(ls))
	for _, it := range ls {
		raw, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		out = append(out, itemEnvelope{Category: it.Category(), Item: raw})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (ls *LineItems) UnmarshalJSON(b []byte) error {
	var envs []itemEnvelope
	if err := json.Unmarshal(b, &envs); err != nil {
		return err
	}
	out := make(LineItems, 0, len(envs))
	for _, e := range envs {
		var it LineItem
		switch e.Category {
		case CategoryModel:
			var m ModelItem
			if err := json.Unmarshal(e.Item, &m); err != nil {
				return err
			}
			it = m
		case CategoryData:
			var d DataItem
			if err := json.Unmarshal(e.Item, &d); err != nil {
				return err
			}
			it = d
		case CategoryApp:
			var a AppItem
			if err := json.Unmarshal(e.Item, &a); err != nil {
				return err
			}
			it = a
		default:
			return fmt.Errorf("record: unknown line item category %q", e.Category)
		}
		out = append(out, it)
	}
	*ls = out
	return nil
}

func keyOr(sku string, c Category) string {
	if sku != "" {
		return sku
	}
	return string(c)
}

func dates(in map[string]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(in))
	for k, v := range in {
		if !v.IsZero() {
			out[k] = v
		}
	}
	return out
}
