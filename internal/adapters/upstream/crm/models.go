package crm

import (
	"time"

	perr "chronicle/internal/platform/errors"

	"chronicle/internal/core/record"
)

// requestDTO is the upstream wire shape for one request record
type requestDTO struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	AccountID      *string       `json:"accountId,omitempty"`
	AccountName    *string       `json:"accountName,omitempty"`
	Status         string        `json:"status"`
	Classification string        `json:"classification"`
	RequestedAt    *time.Time    `json:"requestedAt,omitempty"`
	EffectiveAt    *time.Time    `json:"effectiveAt,omitempty"`
	LineItems      []lineItemDTO `json:"lineItems"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastModifiedAt time.Time     `json:"lastModifiedAt"`
}

// lineItemDTO is a category-discriminated union on the wire; exactly one of
// the category payloads is populated per the discriminator
type lineItemDTO struct {
	Category string `json:"category"`

	SKU string `json:"sku"`

	// model fields
	Edition          string     `json:"edition,omitempty"`
	Seats            int        `json:"seats,omitempty"`
	EntitlementStart *time.Time `json:"entitlementStart,omitempty"`
	EntitlementEnd   *time.Time `json:"entitlementEnd,omitempty"`

	// data fields
	Dataset        string     `json:"dataset,omitempty"`
	RefreshCadence string     `json:"refreshCadence,omitempty"`
	DeliveryStart  *time.Time `json:"deliveryStart,omitempty"`
	DeliveryEnd    *time.Time `json:"deliveryEnd,omitempty"`

	// app fields
	App          string     `json:"app,omitempty"`
	Tier         string     `json:"tier,omitempty"`
	LicenseStart *time.Time `json:"licenseStart,omitempty"`
	LicenseEnd   *time.Time `json:"licenseEnd,omitempty"`
}

// page is the envelope for list endpoints
type page struct {
	Items      []requestDTO `json:"items"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func (d requestDTO) toRecord() (record.TrackedRecord, error) {
	if d.ID == "" {
		return record.TrackedRecord{}, perr.Newf(perr.ErrorCodeValidation, "crm record missing id")
	}

	out := record.TrackedRecord{
		RecordID:       d.ID,
		Label:          d.Name,
		AccountID:      d.AccountID,
		AccountName:    d.AccountName,
		Status:         d.Status,
		Classification: d.Classification,
		CreatedAt:      d.CreatedAt,
		LastModifiedAt: d.LastModifiedAt,
	}
	if d.RequestedAt != nil {
		out.RequestedAt = *d.RequestedAt
	}
	if d.EffectiveAt != nil {
		out.EffectiveAt = *d.EffectiveAt
	}

	for _, li := range d.LineItems {
		item, err := li.toItem()
		if err != nil {
			return record.TrackedRecord{}, perr.Wrapf(err, perr.ErrorCodeValidation, "crm record %s line item", d.ID)
		}
		out.LineItems = append(out.LineItems, item)
	}
	return out, nil
}

func (li lineItemDTO) toItem() (record.LineItem, error) {
	switch record.Category(li.Category) {
	case record.CategoryModel:
		return record.ModelItem{
			SKU:              li.SKU,
			Edition:          li.Edition,
			Seats:            li.Seats,
			EntitlementStart: deref(li.EntitlementStart),
			EntitlementEnd:   deref(li.EntitlementEnd),
		}, nil
	case record.CategoryData:
		return record.DataItem{
			SKU:            li.SKU,
			Dataset:        li.Dataset,
			RefreshCadence: li.RefreshCadence,
			DeliveryStart:  deref(li.DeliveryStart),
			DeliveryEnd:    deref(li.DeliveryEnd),
		}, nil
	case record.CategoryApp:
		return record.AppItem{
			SKU:          li.SKU,
			App:          li.App,
			Tier:         li.Tier,
			LicenseStart: deref(li.LicenseStart),
			LicenseEnd:   deref(li.LicenseEnd),
		}, nil
	default:
		return nil, perr.Newf(perr.ErrorCodeValidation, "unknown line item category %q", li.Category)
	}
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
