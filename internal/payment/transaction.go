// Package payment talks to the Midtrans Snap and Core APIs.
package payment

import (
	"strings"

	"github.com/example/pharmacy-storefront/internal/pricing"
)

const (
	TaxItemID      = "TAX"
	DiscountItemID = "DISCOUNT"

	// Midtrans rejects item names longer than this
	maxItemNameLength = 50
)

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int    `json:"gross_amount"`
}

type ItemDetail struct {
	ID       string `json:"id"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type Address struct {
	Address string `json:"address,omitempty"`
}

type CustomerDetails struct {
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name,omitempty"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	BillingAddress *Address `json:"billing_address,omitempty"`
}

// Transaction is the Snap create-transaction payload
type Transaction struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	ItemDetails        []ItemDetail       `json:"item_details"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
}

// ItemsTotal sums price times quantity over the item details
func (t Transaction) ItemsTotal() int {
	sum := 0
	for _, it := range t.ItemDetails {
		sum += it.Price * it.Quantity
	}
	return sum
}

// Customer is the checkout contact used to build customer details
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// BuildTransaction turns a priced order into a Snap transaction. Tax is added as a
// TAX line and the discount as a negative DISCOUNT line, so the item lines always sum
// to the gross amount.
func BuildTransaction(orderID string, quote pricing.Quote, items []ItemDetail, customer Customer) Transaction {
	details := make([]ItemDetail, 0, len(items)+2)
	for _, it := range items {
		it.Name = truncate(it.Name)
		details = append(details, it)
	}
	if quote.Tax != 0 {
		details = append(details, ItemDetail{ID: TaxItemID, Price: quote.Tax, Quantity: 1, Name: "Tax (10%)"})
	}
	if quote.Discount != 0 {
		details = append(details, ItemDetail{ID: DiscountItemID, Price: -quote.Discount, Quantity: 1, Name: "Discount"})
	}

	first, last := SplitName(customer.Name)
	cd := CustomerDetails{
		FirstName: first,
		LastName:  last,
		Email:     customer.Email,
		Phone:     customer.Phone,
	}
	if customer.Address != "" {
		cd.BillingAddress = &Address{Address: customer.Address}
	}

	return Transaction{
		TransactionDetails: TransactionDetails{OrderID: orderID, GrossAmount: quote.Total},
		ItemDetails:        details,
		CustomerDetails:    cd,
	}
}

// SplitName splits a full name at the first space
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}

func truncate(name string) string {
	r := []rune(name)
	if len(r) <= maxItemNameLength {
		return name
	}
	return string(r[:maxItemNameLength])
}
