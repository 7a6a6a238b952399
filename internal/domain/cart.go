package domain

import "github.com/shopspring/decimal"

// LineKind discriminates the two pricing schemes a cart line can carry.
type LineKind string

const (
	// LineSale is priced as quantity times unit price.
	LineSale LineKind = "sale"
	// LineHire is priced as hours times hourly rate plus days times daily rate.
	LineHire LineKind = "hire"
)

// CatalogItem is the slice of a catalog entry the cart needs to keep.
type CatalogItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageRef string `json:"image,omitempty"`
}

// HireDetails carries the booking parameters for a hire line.
type HireDetails struct {
	Hours      int             `json:"hours"`
	Days       int             `json:"days"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
}

// CartLine is one line in the cart. Kind is set once at creation and decides
// which of the pricing fields are meaningful. A line is identified by
// (ItemID, Kind); adding the same item again merges into the existing line.
type CartLine struct {
	Kind     LineKind `json:"kind"`
	ItemID   string   `json:"itemId"`
	Name     string   `json:"name"`
	ImageRef string   `json:"image,omitempty"`

	// Sale fields.
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`

	// Hire fields.
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
	Hours      int             `json:"hours"`
	Days       int             `json:"days"`
}

// WellFormed reports whether the line could have come from a valid snapshot.
func (l CartLine) WellFormed() bool {
	if l.ItemID == "" {
		return false
	}
	switch l.Kind {
	case LineSale:
		return l.Quantity >= 1 && !l.UnitPrice.IsNegative()
	case LineHire:
		return l.Hours >= 0 && l.Days >= 0 &&
			!l.HourlyRate.IsNegative() && !l.DailyRate.IsNegative()
	}
	return false
}
