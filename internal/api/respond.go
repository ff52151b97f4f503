package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/example/pharmacy-storefront/internal/auth"
	"github.com/example/pharmacy-storefront/internal/checkout"
	"github.com/example/pharmacy-storefront/internal/coupon"
	"github.com/example/pharmacy-storefront/internal/domain/cart"
	"github.com/example/pharmacy-storefront/internal/domain/category"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/domain/product"
	"github.com/example/pharmacy-storefront/internal/domain/user"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/notification"
	"github.com/example/pharmacy-storefront/internal/payment"
	"github.com/example/pharmacy-storefront/internal/report"
	"github.com/example/pharmacy-storefront/internal/validation"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondError maps err to a status code. Server errors are logged and hidden.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  validation.ErrValidation.Error(),
			"fields": verr.Fields,
		})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		respondJSONError(w, "internal error", status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

// statusFor is the single mapping from domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, validation.ErrValidation),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, coupon.ErrUnknownCoupon),
		errors.Is(err, coupon.ErrCouponNotApplicable),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidOutcome),
		errors.Is(err, checkout.ErrInvalidChoice),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidName),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, product.ErrZeroStockAdjustment),
		errors.Is(err, category.ErrInvalidName),
		errors.Is(err, category.ErrInvalidSlug),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidName),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrMissingOrderID),
		errors.Is(err, order.ErrTotalMismatch),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, notification.ErrInvalidType),
		errors.Is(err, notification.ErrEmptyNotice):
		return http.StatusBadRequest

	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized

	case errors.Is(err, user.ErrUserDeactivated),
		errors.Is(err, checkout.ErrInvalidSignature):
		return http.StatusForbidden

	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, category.ErrCategoryNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrItemNotInCart),
		errors.Is(err, cart.ErrItemNotSaved),
		errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, notification.ErrNoRecipients),
		errors.Is(err, payment.ErrTransactionNotFound):
		return http.StatusNotFound

	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderAlreadyPaid),
		errors.Is(err, order.ErrOrderExists),
		errors.Is(err, order.ErrNotOnlinePayment),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrOrderIDTaken),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, product.ErrInsufficientStock):
		return http.StatusConflict

	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway

	case errors.Is(err, checkout.ErrPaymentDisabled),
		errors.Is(err, payment.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a bounded JSON body into out and validates it when it carries tags
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return validation.Struct(h.validate, out)
}
