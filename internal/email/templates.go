package email

import (
	"fmt"
	"html"
	"strings"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     int
}

// OrderConfirmation carries what the confirmation email shows
type OrderConfirmation struct {
	OrderID       string
	CustomerName  string
	Items         []OrderItem
	Subtotal      int
	Tax           int
	Discount      int
	Total         int
	CouponCode    string
	PaymentMethod string
	StatusText    string
}

// BuildOrderConfirmationSubject builds the subject line for an order confirmation
func BuildOrderConfirmationSubject(orderID string) string {
	return fmt.Sprintf("Order confirmation %s", orderID)
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(c OrderConfirmation) string {
	var itemsHTML strings.Builder
	for _, item := range c.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 10px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			FormatRupiah(item.Price),
			FormatRupiah(item.Price*item.Quantity),
		))
	}

	greeting := "Hello"
	if c.CustomerName != "" {
		greeting = "Hello " + html.EscapeString(c.CustomerName)
	}

	var discountRow string
	if c.Discount > 0 {
		label := "Discount"
		if c.CouponCode != "" {
			label = fmt.Sprintf("Discount (%s)", html.EscapeString(c.CouponCode))
		}
		discountRow = fmt.Sprintf(`<tr><td style="padding: 4px 0;">%s</td><td style="padding: 4px 0; text-align: right;">-%s</td></tr>`,
			label, FormatRupiah(c.Discount))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #0f9d58; padding: 24px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 24px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s, we have received your order.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
			<p style="margin: 5px 0 0 0; font-size: 14px;">Status: %s</p>
			<p style="margin: 5px 0 0 0; font-size: 14px;">Payment: %s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 10px; text-align: left;">Item</th>
					<th style="padding: 10px; text-align: center;">Qty</th>
					<th style="padding: 10px; text-align: right;">Price</th>
					<th style="padding: 10px; text-align: right;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<table style="width: 100%%; font-size: 14px;">
			<tr><td style="padding: 4px 0;">Subtotal</td><td style="padding: 4px 0; text-align: right;">%s</td></tr>
			<tr><td style="padding: 4px 0;">Tax (10%%)</td><td style="padding: 4px 0; text-align: right;">%s</td></tr>
			%s
			<tr><td style="padding: 8px 0; font-weight: bold;">Total</td><td style="padding: 8px 0; text-align: right; font-weight: bold; font-size: 18px;">%s</td></tr>
		</table>

		<hr style="border: none; border-top: 1px solid #eee; margin: 24px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			Please bring your order number when picking up. This email was sent automatically.
		</p>
	</div>
</body>
</html>`,
		greeting,
		html.EscapeString(c.OrderID),
		html.EscapeString(c.StatusText),
		paymentLabel(c.PaymentMethod),
		itemsHTML.String(),
		FormatRupiah(c.Subtotal),
		FormatRupiah(c.Tax),
		discountRow,
		FormatRupiah(c.Total),
	)
}

func paymentLabel(method string) string {
	switch method {
	case "pay-online":
		return "online payment"
	case "pay-on-pickup":
		return "pay at pickup"
	}
	return html.EscapeString(method)
}

// FormatRupiah renders an amount as "Rp 12.500"
func FormatRupiah(n int) string {
	if n < 0 {
		return "-Rp " + formatNumber(-n)
	}
	return "Rp " + formatNumber(n)
}

// formatNumber formats a number with dot thousands separators
func formatNumber(n int) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(".")
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(".")
		}
	}

	return result.String()
}
