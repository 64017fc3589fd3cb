package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLineAmountsRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name         string
		qty          string
		unitPrice    int64
		taxRate      string
		wantSubtotal int64
		wantTax      int64
	}{
		{"whole units", "2", 1000, "9", 2000, 180},
		{"fractional qty", "2.5", 450, "9", 1125, 101},
		{"half cent rounds up", "1.5", 333, "0", 500, 0},
		{"tax half cent rounds up", "1", 250, "10", 250, 25},
		{"zero tax", "3", 700, "0", 2100, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			subtotal, tax := LineAmounts(Line{
				Qty:            decimal.RequireFromString(tc.qty),
				UnitPriceCents: tc.unitPrice,
				TaxRate:        decimal.RequireFromString(tc.taxRate),
			})
			if subtotal != tc.wantSubtotal || tax != tc.wantTax {
				t.Fatalf("got %d/%d, want %d/%d", subtotal, tax, tc.wantSubtotal, tc.wantTax)
			}
		})
	}
}

func TestTotalsIncludeTax(t *testing.T) {
	lines := []Line{
		{Qty: decimal.NewFromInt(2), UnitPriceCents: 1000, TaxRate: decimal.NewFromInt(9)},
	}
	total, tax := Totals(lines)
	if total != 2180 {
		t.Fatalf("expected total 2180, got %d", total)
	}
	if tax != 180 {
		t.Fatalf("expected tax 180, got %d", tax)
	}
}

func TestTotalsSumPerLineRounding(t *testing.T) {
	// Two lines whose tax would round differently if computed on the
	// combined subtotal: rounding must stay per line.
	lines := []Line{
		{Qty: decimal.NewFromInt(1), UnitPriceCents: 105, TaxRate: decimal.NewFromInt(10)}, // tax 10.5 -> 11
		{Qty: decimal.NewFromInt(1), UnitPriceCents: 105, TaxRate: decimal.NewFromInt(10)}, // tax 10.5 -> 11
	}
	total, tax := Totals(lines)
	if tax != 22 {
		t.Fatalf("expected per-line rounded tax 22, got %d", tax)
	}
	if total != 232 {
		t.Fatalf("expected total 232, got %d", total)
	}
}
