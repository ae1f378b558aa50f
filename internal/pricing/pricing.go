package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one priced entry of a cart or order.
type Line struct {
	Price    decimal.Decimal
	Quantity int32
}

// Total returns price * quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt32(l.Quantity))
}

// Summary is the priced result shown on cart and checkout screens.
type Summary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Quote prices a selection of lines.
//
// An empty selection is free: no shipping is charged and the discount is
// dropped. Otherwise total = subtotal + shipping - discount, with the discount
// clamped to [0, subtotal].
func Quote(lines []Line, shippingFee, discount decimal.Decimal) Summary {
	if len(lines) == 0 {
		return Summary{
			Subtotal:    decimal.Zero,
			ShippingFee: decimal.Zero,
			Discount:    decimal.Zero,
			Total:       decimal.Zero,
		}
	}

	subtotal := Subtotal(lines)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	total := subtotal.Add(shippingFee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Summary{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Discount:    discount,
		Total:       total,
	}
}

// Subtotal returns the sum of price * quantity over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// FormatVND renders an amount the way the apps display it: 130.000đ
func FormatVND(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	b.WriteString("đ")
	return b.String()
}
