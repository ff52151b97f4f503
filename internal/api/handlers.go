package api

import (
	"net/http"

	"github.com/example/pharmacy-storefront/internal/api/middleware"
	"github.com/example/pharmacy-storefront/internal/auth"
	"github.com/example/pharmacy-storefront/internal/checkout"
	"github.com/example/pharmacy-storefront/internal/command"
	"github.com/example/pharmacy-storefront/internal/coupon"
	"github.com/example/pharmacy-storefront/internal/domain/cart"
	"github.com/example/pharmacy-storefront/internal/domain/category"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/domain/product"
	"github.com/example/pharmacy-storefront/internal/domain/user"
	"github.com/example/pharmacy-storefront/internal/notification"
	"github.com/example/pharmacy-storefront/internal/query"
	"github.com/example/pharmacy-storefront/internal/report"
	"github.com/example/pharmacy-storefront/internal/validation"
	validatorv10 "github.com/go-playground/validator/v10"
)

// Deps wires the handlers to the services
type Deps struct {
	Commands      *command.Handler
	Queries       *query.Handler
	Checkout      *checkout.Service
	Carts         *cart.Service
	Orders        *order.Service
	Users         *user.Service
	Notifications *notification.Service
	Reports       *report.Service
	Coupons       *coupon.Catalogue
	JWT           *auth.JWTService
	// Gateway is nil when online payment is disabled
	Gateway   checkout.Gateway
	ClientKey string
}

type Handlers struct {
	cmdHandler    *command.Handler
	queryHandler  *query.Handler
	checkout      *checkout.Service
	carts         *cart.Service
	orders        *order.Service
	users         *user.Service
	notifications *notification.Service
	reports       *report.Service
	coupons       *coupon.Catalogue
	jwtService    *auth.JWTService
	gateway       checkout.Gateway
	clientKey     string
	validate      *validatorv10.Validate
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		cmdHandler:    d.Commands,
		queryHandler:  d.Queries,
		checkout:      d.Checkout,
		carts:         d.Carts,
		orders:        d.Orders,
		users:         d.Users,
		notifications: d.Notifications,
		reports:       d.Reports,
		coupons:       d.Coupons,
		jwtService:    d.JWT,
		gateway:       d.Gateway,
		clientKey:     d.ClientKey,
		validate:      validation.New(),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"payment_enabled": h.checkout.PaymentEnabled(),
	})
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products := h.queryHandler.ListProducts(r.Context(), r.URL.Query().Get("category"))
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok, err := h.queryHandler.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondError(w, r, product.ErrProductNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	cmd.ProductID = r.PathValue("id")

	p, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteProduct{ProductID: r.PathValue("id")}
	if err := h.cmdHandler.DeleteProduct(r.Context(), cmd); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.AdjustStock
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	cmd.ProductID = r.PathValue("id")

	p, err := h.cmdHandler.AdjustStock(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Category Handlers

// ListCategories returns active categories; admins may ask for inactive ones too
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "true" && isAdmin(r)
	respondJSON(w, http.StatusOK, h.queryHandler.ListCategories(r.Context(), includeInactive))
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, ok, err := h.queryHandler.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok || !c.IsActive {
		respondError(w, r, category.ErrCategoryNotFound)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCategory
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.cmdHandler.CreateCategory(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// Coupon Handlers

// ListCoupons shows the active coupons so the storefront can advertise them
func (h *Handlers) ListCoupons(w http.ResponseWriter, r *http.Request) {
	if h.coupons == nil {
		respondJSON(w, http.StatusOK, []coupon.Coupon{})
		return
	}
	respondJSON(w, http.StatusOK, h.coupons.Active())
}

func getUserID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	return ok && claims.Role == user.RoleAdmin
}
