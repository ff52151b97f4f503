package payment

import (
	"strings"
	"testing"

	"github.com/example/pharmacy-storefront/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransaction_LinesSumToGross(t *testing.T) {
	items := []ItemDetail{
		{ID: "p1", Price: 12000, Quantity: 2, Name: "Paracetamol 500mg"},
		{ID: "p2", Price: 35000, Quantity: 1, Name: "Vitamin C 1000mg"},
	}
	quote := pricing.Compute([]pricing.Line{{Price: 12000, Quantity: 2}, {Price: 35000, Quantity: 1}}, 5900)

	tx := BuildTransaction("ORD-1", quote, items, Customer{Name: "Budi Santoso", Email: "budi@example.com", Phone: "0812"})

	assert.Equal(t, quote.Total, tx.TransactionDetails.GrossAmount)
	assert.Equal(t, tx.TransactionDetails.GrossAmount, tx.ItemsTotal())
	require.Len(t, tx.ItemDetails, 4)
	assert.Equal(t, TaxItemID, tx.ItemDetails[2].ID)
	assert.Equal(t, quote.Tax, tx.ItemDetails[2].Price)
	assert.Equal(t, DiscountItemID, tx.ItemDetails[3].ID)
	assert.Equal(t, -5900, tx.ItemDetails[3].Price)
	assert.Equal(t, "Budi", tx.CustomerDetails.FirstName)
	assert.Equal(t, "Santoso", tx.CustomerDetails.LastName)
	assert.Nil(t, tx.CustomerDetails.BillingAddress)
}

func TestBuildTransaction_NoDiscountLineWhenZero(t *testing.T) {
	quote := pricing.Compute([]pricing.Line{{Price: 12000, Quantity: 2}}, 0)

	tx := BuildTransaction("ORD-2", quote, []ItemDetail{{ID: "p1", Price: 12000, Quantity: 2, Name: "Obat"}}, Customer{Name: "Ani", Address: "Jl. Mawar 2"})

	require.Len(t, tx.ItemDetails, 2)
	assert.Equal(t, 26400, tx.TransactionDetails.GrossAmount)
	assert.Equal(t, 26400, tx.ItemsTotal())
	require.NotNil(t, tx.CustomerDetails.BillingAddress)
	assert.Equal(t, "Jl. Mawar 2", tx.CustomerDetails.BillingAddress.Address)
	assert.Equal(t, "", tx.CustomerDetails.LastName)
}

func TestBuildTransaction_TruncatesLongNames(t *testing.T) {
	long := strings.Repeat("x", 80)
	quote := pricing.Compute([]pricing.Line{{Price: 1000, Quantity: 1}}, 0)

	tx := BuildTransaction("ORD-3", quote, []ItemDetail{{ID: "p", Price: 1000, Quantity: 1, Name: long}}, Customer{Name: "A"})

	assert.Len(t, tx.ItemDetails[0].Name, maxItemNameLength)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Budi", "Budi", ""},
		{" Budi Santoso ", "Budi", "Santoso"},
		{"Siti Nur Aisyah", "Siti", "Nur Aisyah"},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.first, first)
		assert.Equal(t, tt.last, last)
	}
}
