package checkout

import (
	"strings"

	"github.com/example/pharmacy-storefront/internal/domain/order"
)

// Form is the customer data collected at checkout. Only presence is checked.
type Form struct {
	Name          string              `json:"name" validate:"required"`
	Email         string              `json:"email" validate:"required"`
	Phone         string              `json:"phone" validate:"required"`
	Address       string              `json:"address"`
	Notes         string              `json:"notes"`
	CouponCode    string              `json:"coupon_code"`
	PaymentMethod order.PaymentMethod `json:"payment_method" validate:"required,oneof=pay-online pay-on-pickup"`
}

func (f *Form) trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.Notes = strings.TrimSpace(f.Notes)
	f.CouponCode = strings.TrimSpace(f.CouponCode)
}

func (f Form) customer() order.Customer {
	return order.Customer{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Address: f.Address,
	}
}
