// Package money implements the line-item rounding rules for order
// pricing. All amounts are integer minor units; fractional cents are
// rounded half up at the line level, never at the order level.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is one priced order line: a quantity against a unit price
// snapshot and the tax rate (percent) captured with it.
type Line struct {
	Qty            decimal.Decimal
	UnitPriceCents int64
	TaxRate        decimal.Decimal
}

// LineAmounts returns the rounded subtotal and tax for a single line.
// Tax is computed on the already-rounded subtotal so that the printed
// line amounts always add up.
func LineAmounts(line Line) (subtotalCents, taxCents int64) {
	subtotal := line.Qty.Mul(decimal.NewFromInt(line.UnitPriceCents)).Round(0)
	tax := subtotal.Mul(line.TaxRate).Div(hundred).Round(0)
	return subtotal.IntPart(), tax.IntPart()
}

// Totals sums per-line amounts. The grand total includes tax.
func Totals(lines []Line) (totalCents, taxCents int64) {
	for _, line := range lines {
		subtotal, tax := LineAmounts(line)
		totalCents += subtotal + tax
		taxCents += tax
	}
	return totalCents, taxCents
}
