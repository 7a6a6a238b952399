// Package pricing resolves cart line subtotals across the two pricing
// schemes: sale lines (quantity times unit price) and hire lines (duration
// times hourly/daily rates). All arithmetic is decimal so repeated
// accumulation cannot drift.
package pricing

import (
	"github.com/shopspring/decimal"

	"hireshop/internal/domain"
)

// Subtotal computes the price of a single line. Unknown kinds price to zero;
// negative or zero durations and quantities contribute nothing beyond what
// the arithmetic implies.
func Subtotal(line domain.CartLine) decimal.Decimal {
	switch line.Kind {
	case domain.LineSale:
		return line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	case domain.LineHire:
		hours := line.HourlyRate.Mul(decimal.NewFromInt(int64(line.Hours)))
		days := line.DailyRate.Mul(decimal.NewFromInt(int64(line.Days)))
		return hours.Add(days)
	}
	return decimal.Zero
}

// Total sums subtotals over all lines.
func Total(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(Subtotal(line))
	}
	return total
}

// Display renders an amount rounded to two decimal places for presentation.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
