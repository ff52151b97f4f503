package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid gross amount")

// Outcome is the normalized result of a gateway transaction
type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)

// Status is the gateway's view of a transaction, shared by the status API and webhooks
type Status struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message,omitempty"`
	GrossAmount       string `json:"gross_amount"`
	TransactionID     string `json:"transaction_id,omitempty"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	PaymentType       string `json:"payment_type,omitempty"`
	TransactionTime   string `json:"transaction_time,omitempty"`
	SignatureKey      string `json:"signature_key,omitempty"`
}

func (s Status) Outcome() Outcome {
	return Classify(s.TransactionStatus, s.FraudStatus)
}

// Classify maps transaction and fraud status to an outcome.
// A captured card payment is only paid once fraud screening accepts it.
func Classify(transactionStatus, fraudStatus string) Outcome {
	switch transactionStatus {
	case "settlement":
		return OutcomePaid
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return OutcomePaid
		}
		if fraudStatus == "deny" {
			return OutcomeFailed
		}
		return OutcomePending
	case "deny", "cancel", "expire", "failure":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// Signature computes sha512(order_id + status_code + gross_amount + server_key) in hex
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a notification's signature_key against the server key
func VerifySignature(n Status, serverKey string) bool {
	if n.SignatureKey == "" || serverKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}

// ParseAmount reads a gateway gross_amount such as "26400.00" as whole rupiah.
// A non-zero fractional part is rejected.
func ParseAmount(gross string) (int, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(gross), ".")
	if strings.Trim(frac, "0") != "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, gross)
	}
	n, err := strconv.Atoi(whole)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, gross)
	}
	return n, nil
}

// PaidAmount reports whether the status carries exactly total
func (s Status) PaidAmount(total int) bool {
	n, err := ParseAmount(s.GrossAmount)
	return err == nil && n == total
}
