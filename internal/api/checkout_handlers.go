package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/example/pharmacy-storefront/internal/checkout"
	"github.com/example/pharmacy-storefront/internal/payment"
	"github.com/example/pharmacy-storefront/internal/validation"
)

type quoteRequest struct {
	CouponCode string `json:"coupon_code"`
}

type resolveRequest struct {
	Choice checkout.Choice `json:"choice" validate:"required"`
}

// PaymentConfig tells the storefront whether and how to open the payment widget
func (h *Handlers) PaymentConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"enabled":    h.checkout.PaymentEnabled(),
		"client_key": h.clientKey,
	})
}

// Quote prices the caller's cart with an optional coupon without writing anything
func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := h.checkout.Quote(r.Context(), getUserID(r), req.CouponCode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Checkout submits the checkout form
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := h.decodeJSON(w, r, &form); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.checkout.Begin(r.Context(), getUserID(r), form)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Order != nil {
		status = http.StatusCreated
	}
	respondJSON(w, status, result)
}

func (h *Handlers) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.Session(r.Context(), getUserID(r), r.PathValue("orderID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// ReportOutcome receives the payment widget callback
func (h *Handlers) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	var outcome checkout.Outcome
	if err := h.decodeJSON(w, r, &outcome); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.checkout.ReportOutcome(r.Context(), getUserID(r), r.PathValue("orderID"), outcome)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ResolveCheckout settles a pending or closed widget with the user's choice
func (h *Handlers) ResolveCheckout(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.checkout.Resolve(r.Context(), getUserID(r), r.PathValue("orderID"), req.Choice)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Gateway Handlers

type transactionCustomer struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address"`
}

// CreateTransactionRequest is a caller-built Snap transaction
type CreateTransactionRequest struct {
	OrderID     string               `json:"order_id" validate:"required"`
	GrossAmount int                  `json:"gross_amount" validate:"gt=0"`
	Items       []payment.ItemDetail `json:"items" validate:"required,min=1"`
	Customer    transactionCustomer  `json:"customer"`
}

func (req CreateTransactionRequest) transaction() payment.Transaction {
	cd := payment.CustomerDetails{
		FirstName: req.Customer.FirstName,
		LastName:  req.Customer.LastName,
		Email:     req.Customer.Email,
		Phone:     req.Customer.Phone,
	}
	if req.Customer.Address != "" {
		cd.BillingAddress = &payment.Address{Address: req.Customer.Address}
	}
	return payment.Transaction{
		TransactionDetails: payment.TransactionDetails{OrderID: req.OrderID, GrossAmount: req.GrossAmount},
		ItemDetails:        req.Items,
		CustomerDetails:    cd,
	}
}

type transactionResponse struct {
	Success     bool   `json:"success"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	Message     string `json:"message,omitempty"`
}

// CreateTransaction requests a widget token for a transaction the caller built.
// The item lines must add up to the gross amount and the order id must be unused.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		h.transactionFailed(w, r, checkout.ErrPaymentDisabled)
		return
	}

	var req CreateTransactionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.transactionFailed(w, r, err)
		return
	}

	tx := req.transaction()
	if sum := tx.ItemsTotal(); sum != req.GrossAmount {
		h.transactionFailed(w, r, validation.Field("items",
			fmt.Sprintf("item lines add up to %d, gross_amount is %d", sum, req.GrossAmount)))
		return
	}

	if err := h.checkout.EnsureNewOrderID(r.Context(), req.OrderID); err != nil {
		h.transactionFailed(w, r, err)
		return
	}

	token, err := h.gateway.CreateTransaction(r.Context(), tx)
	if err != nil {
		h.transactionFailed(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse{
		Success:     true,
		Token:       token.Token,
		RedirectURL: token.RedirectURL,
		OrderID:     req.OrderID,
	})
}

func (h *Handlers) transactionFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()

	var gerr *payment.GatewayError
	switch {
	case errors.As(err, &gerr):
		message = gerr.Message
	case status == http.StatusInternalServerError:
		log.Printf("[API] create transaction failed: %v", err)
		message = "internal error"
	}
	respondJSON(w, status, transactionResponse{Success: false, Message: message})
}

// MidtransNotification is the gateway webhook. It is authenticated by the payload signature.
func (h *Handlers) MidtransNotification(w http.ResponseWriter, r *http.Request) {
	var n payment.Status
	if err := h.decodeJSON(w, r, &n); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.checkout.HandleGatewayNotification(r.Context(), n)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
