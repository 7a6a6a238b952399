package cart

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/shopspring/decimal"

	"hireshop/internal/domain"
	"hireshop/internal/storage"
)

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemory()
	return New(kv, discard()), kv
}

func TestAddItemMergesSameSaleItem(t *testing.T) {
	s, _ := newStore(t)
	item := domain.CatalogItem{ID: "A", Name: "Drill"}
	if err := s.AddItem(item, dec("100"), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddItem(item, dec("100"), 1); err != nil {
		t.Fatalf("add again: %v", err)
	}

	lines := s.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", lines[0].Quantity)
	}
}

func TestAddItemQuantityNeverBelowOne(t *testing.T) {
	s, _ := newStore(t)
	item := domain.CatalogItem{ID: "A"}
	if err := s.AddItem(item, dec("100"), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddItem(item, dec("100"), -5); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := s.Lines()[0].Quantity; got != 1 {
		t.Fatalf("expected floor at 1, got %d", got)
	}
}

func TestAddHireItemAccumulatesHoursAndDays(t *testing.T) {
	s, _ := newStore(t)
	item := domain.CatalogItem{ID: "B", Name: "Generator"}
	details := domain.HireDetails{Hours: 2, Days: 1, HourlyRate: dec("50"), DailyRate: dec("300")}
	if err := s.AddHireItem(item, details); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddHireItem(item, domain.HireDetails{Hours: 3, Days: 2, HourlyRate: dec("50"), DailyRate: dec("300")}); err != nil {
		t.Fatalf("add again: %v", err)
	}

	lines := s.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(lines))
	}
	if lines[0].Hours != 5 || lines[0].Days != 3 {
		t.Fatalf("expected hours=5 days=3, got hours=%d days=%d", lines[0].Hours, lines[0].Days)
	}
}

func TestSaleAndHireLinesForSameItemStayDistinct(t *testing.T) {
	s, _ := newStore(t)
	item := domain.CatalogItem{ID: "X"}
	if err := s.AddItem(item, dec("10"), 1); err != nil {
		t.Fatalf("add sale: %v", err)
	}
	if err := s.AddHireItem(item, domain.HireDetails{Hours: 1, HourlyRate: dec("5")}); err != nil {
		t.Fatalf("add hire: %v", err)
	}
	if got := s.Len(); got != 2 {
		t.Fatalf("expected two lines, got %d", got)
	}
}

func TestTotalMatchesSpecScenario(t *testing.T) {
	s, _ := newStore(t)
	if err := s.AddItem(domain.CatalogItem{ID: "A"}, dec("100"), 2); err != nil {
		t.Fatalf("add sale: %v", err)
	}
	err := s.AddHireItem(domain.CatalogItem{ID: "B"}, domain.HireDetails{
		Hours: 2, Days: 1, HourlyRate: dec("50"), DailyRate: dec("300"),
	})
	if err != nil {
		t.Fatalf("add hire: %v", err)
	}

	if got := s.Total(); !got.Equal(dec("600")) {
		t.Fatalf("expected total 600, got %s", got)
	}
	// Reading again without mutation yields the same value.
	if got := s.Total(); !got.Equal(dec("600")) {
		t.Fatalf("total not idempotent, got %s", got)
	}
}

func TestSetQuantityFloorsAtOne(t *testing.T) {
	s, _ := newStore(t)
	if err := s.AddItem(domain.CatalogItem{ID: "A"}, dec("100"), 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.SetQuantity("A", 0); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got := s.Lines()[0].Quantity; got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestSetQuantityRejectsHireLine(t *testing.T) {
	s, _ := newStore(t)
	if err := s.AddHireItem(domain.CatalogItem{ID: "B"}, domain.HireDetails{Hours: 1, HourlyRate: dec("5")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.SetQuantity("B", 2); !errors.Is(err, ErrHireQuantity) {
		t.Fatalf("expected ErrHireQuantity, got %v", err)
	}
}

func TestSetQuantityUnknownItem(t *testing.T) {
	s, _ := newStore(t)
	if err := s.SetQuantity("ghost", 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveItemAbsentIsNoop(t *testing.T) {
	s, _ := newStore(t)
	if err := s.RemoveItem("ghost"); err != nil {
		t.Fatalf("remove absent item: %v", err)
	}
}

func TestRemoveItemDeletesLine(t *testing.T) {
	s, _ := newStore(t)
	if err := s.AddItem(domain.CatalogItem{ID: "A"}, dec("100"), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RemoveItem("A"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("expected empty cart, got %d lines", got)
	}
}

func TestPersistReloadRoundTrip(t *testing.T) {
	kv := storage.NewMemory()
	s := New(kv, discard())
	if err := s.AddItem(domain.CatalogItem{ID: "A", Name: "Drill"}, dec("99.95"), 2); err != nil {
		t.Fatalf("add sale: %v", err)
	}
	err := s.AddHireItem(domain.CatalogItem{ID: "B"}, domain.HireDetails{
		Hours: 4, HourlyRate: dec("12.50"),
	})
	if err != nil {
		t.Fatalf("add hire: %v", err)
	}

	reloaded := New(kv, discard())
	if got := reloaded.Len(); got != 2 {
		t.Fatalf("expected 2 lines after reload, got %d", got)
	}
	if !reloaded.Total().Equal(s.Total()) {
		t.Fatalf("total changed across reload: %s vs %s", reloaded.Total(), s.Total())
	}
}

func TestCorruptSnapshotYieldsEmptyCart(t *testing.T) {
	kv := storage.NewMemory()
	if err := kv.Set("cart", []byte("{{broken")); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}
	s := New(kv, discard())
	if got := s.Len(); got != 0 {
		t.Fatalf("expected empty cart, got %d lines", got)
	}
}

func TestMalformedLineDiscardsSnapshot(t *testing.T) {
	kv := storage.NewMemory()
	// Parses as JSON but the line has no item id and an unknown kind.
	if err := kv.Set("cart", []byte(`[{"kind":"mystery","quantity":3}]`)); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	s := New(kv, discard())
	if got := s.Len(); got != 0 {
		t.Fatalf("expected empty cart, got %d lines", got)
	}
}

func TestClearPersistsEmptyCart(t *testing.T) {
	kv := storage.NewMemory()
	s := New(kv, discard())
	if err := s.AddItem(domain.CatalogItem{ID: "A"}, dec("10"), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := New(kv, discard()).Len(); got != 0 {
		t.Fatalf("clear did not persist, reload has %d lines", got)
	}
}
