package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_SingleLine(t *testing.T) {
	q := Compute([]Line{{Price: 12000, Quantity: 2}}, 0)

	assert.Equal(t, Quote{Subtotal: 24000, Tax: 2400, Discount: 0, Total: 26400}, q)
}

func TestCompute_WithDiscount(t *testing.T) {
	q := Compute([]Line{{Price: 15000, Quantity: 1}, {Price: 5000, Quantity: 3}}, 5000)

	assert.Equal(t, 30000, q.Subtotal)
	assert.Equal(t, 3000, q.Tax)
	assert.Equal(t, 5000, q.Discount)
	assert.Equal(t, 28000, q.Total)
}

func TestCompute_EmptyCart(t *testing.T) {
	q := Compute(nil, 0)

	assert.Equal(t, Quote{}, q)
}

func TestCompute_DiscountClamped(t *testing.T) {
	tests := []struct {
		name     string
		discount int
		want     int
	}{
		{"negative", -100, 0},
		{"above subtotal", 50000, 10000},
		{"exact subtotal", 10000, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Compute([]Line{{Price: 10000, Quantity: 1}}, tt.discount)
			assert.Equal(t, tt.want, q.Discount)
			assert.Equal(t, q.Subtotal+q.Tax-q.Discount, q.Total)
			assert.GreaterOrEqual(t, q.Total, 0)
		})
	}
}

func TestTax_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		subtotal int
		want     int
	}{
		{0, 0},
		{4, 0},
		{5, 1},
		{15, 2},
		{14, 1},
		{1005, 101},
		{1004, 100},
		{-5, -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Tax(tt.subtotal), "subtotal %d", tt.subtotal)
	}
}

func TestCompute_TotalInvariant(t *testing.T) {
	for price := 1; price < 3000; price += 37 {
		for qty := 1; qty <= 3; qty++ {
			q := Compute([]Line{{Price: price, Quantity: qty}}, price/3)
			assert.Equal(t, q.Subtotal+q.Tax-q.Discount, q.Total)
			assert.Equal(t, Tax(q.Subtotal), q.Tax)
		}
	}
}
