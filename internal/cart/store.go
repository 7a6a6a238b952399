// Package cart is the persisted cart store. It is the single source of truth
// for what gets submitted at checkout: every mutation is written through to
// the snapshot store synchronously, and the last snapshot is reloaded on
// construction.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"hireshop/internal/domain"
	"hireshop/internal/pricing"
	"hireshop/internal/storage"
)

const snapshotKey = "cart"

var (
	// ErrHireQuantity is returned when a quantity update targets a hire line.
	ErrHireQuantity = errors.New("hire lines have no quantity")
)

// Store holds the ordered cart lines. Insertion order is display order.
type Store struct {
	mu     sync.Mutex
	lines  []domain.CartLine
	kv     storage.Store
	logger *log.Logger
}

// New loads the last persisted snapshot. A snapshot that fails to parse, or
// that contains malformed lines, is discarded in favour of an empty cart:
// corrupted local state must never prevent startup.
func New(kv storage.Store, logger *log.Logger) *Store {
	s := &Store{kv: kv, logger: logger}
	raw, err := kv.Get(snapshotKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Printf("load cart snapshot: %v", err)
		}
		return s
	}
	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		logger.Printf("discarding unreadable cart snapshot: %v", err)
		return s
	}
	for _, line := range lines {
		if !line.WellFormed() {
			logger.Printf("discarding cart snapshot with malformed line %q", line.ItemID)
			return s
		}
	}
	s.lines = lines
	return s
}

// AddItem merges delta units of a sale item into the cart. A delta below one
// is treated as one for a new line; an existing line's quantity grows by
// delta but never drops below one.
func (s *Store) AddItem(item domain.CatalogItem, unitPrice decimal.Decimal, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Kind == domain.LineSale && s.lines[i].ItemID == item.ID {
			quantity := s.lines[i].Quantity + delta
			if quantity < 1 {
				quantity = 1
			}
			s.lines[i].Quantity = quantity
			return s.persistLocked()
		}
	}

	if delta < 1 {
		delta = 1
	}
	s.lines = append(s.lines, domain.CartLine{
		Kind:      domain.LineSale,
		ItemID:    item.ID,
		Name:      item.Name,
		ImageRef:  item.ImageRef,
		UnitPrice: unitPrice,
		Quantity:  delta,
	})
	return s.persistLocked()
}

// AddHireItem merges a hire booking into the cart. Hours and days for an
// already carted item accumulate; rates are taken from the latest add.
func (s *Store) AddHireItem(item domain.CatalogItem, details domain.HireDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Kind == domain.LineHire && s.lines[i].ItemID == item.ID {
			s.lines[i].Hours += details.Hours
			s.lines[i].Days += details.Days
			s.lines[i].HourlyRate = details.HourlyRate
			s.lines[i].DailyRate = details.DailyRate
			return s.persistLocked()
		}
	}

	s.lines = append(s.lines, domain.CartLine{
		Kind:       domain.LineHire,
		ItemID:     item.ID,
		Name:       item.Name,
		ImageRef:   item.ImageRef,
		HourlyRate: details.HourlyRate,
		DailyRate:  details.DailyRate,
		Hours:      details.Hours,
		Days:       details.Days,
	})
	return s.persistLocked()
}

// RemoveItem deletes every line for itemID. Absent lines are a no-op.
func (s *Store) RemoveItem(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0]
	removed := false
	for _, line := range s.lines {
		if line.ItemID == itemID {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	s.lines = kept
	if !removed {
		return nil
	}
	return s.persistLocked()
}

// SetQuantity replaces a sale line's quantity, flooring at one. Removing a
// line takes an explicit RemoveItem call. Targeting a hire line is an error.
func (s *Store) SetQuantity(itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ItemID != itemID {
			continue
		}
		if s.lines[i].Kind != domain.LineSale {
			return fmt.Errorf("item %q: %w", itemID, ErrHireQuantity)
		}
		if quantity < 1 {
			quantity = 1
		}
		s.lines[i].Quantity = quantity
		return s.persistLocked()
	}
	return fmt.Errorf("item %q: %w", itemID, domain.ErrNotFound)
}

// Clear empties the cart. Called exactly once per successful checkout.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return s.persistLocked()
}

// Lines returns a copy of the current lines in display order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len reports the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Total recomputes the cart total from the current lines on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Total(s.lines)
}

func (s *Store) persistLocked() error {
	raw, err := json.Marshal(s.lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(snapshotKey, raw); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
