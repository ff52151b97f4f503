// Package pricing computes order totals from cart lines.
package pricing

// TaxPercent is the flat tax applied to the subtotal
const TaxPercent = 10

// Line is one priced cart line
type Line struct {
	Price    int
	Quantity int
}

// Quote is the priced breakdown of a cart. Total always equals Subtotal + Tax - Discount.
type Quote struct {
	Subtotal int `json:"subtotal"`
	Tax      int `json:"tax"`
	Discount int `json:"discount"`
	Total    int `json:"total"`
}

// Subtotal sums price times quantity
func Subtotal(lines []Line) int {
	sum := 0
	for _, l := range lines {
		sum += l.Price * l.Quantity
	}
	return sum
}

// Tax returns TaxPercent of subtotal rounded half away from zero
func Tax(subtotal int) int {
	return roundPercent(subtotal, TaxPercent)
}

// Compute prices the lines. The discount is clamped to [0, subtotal].
func Compute(lines []Line, discount int) Quote {
	subtotal := Subtotal(lines)
	if discount < 0 {
		discount = 0
	}
	if subtotal >= 0 && discount > subtotal {
		discount = subtotal
	}
	tax := Tax(subtotal)
	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal + tax - discount,
	}
}

func roundPercent(amount, percent int) int {
	n := amount * percent
	if n < 0 {
		return -((-n + 50) / 100)
	}
	return (n + 50) / 100
}
