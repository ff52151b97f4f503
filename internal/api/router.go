package api

import (
	"net/http"

	"github.com/example/pharmacy-storefront/internal/api/middleware"
	"github.com/example/pharmacy-storefront/internal/domain/user"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	// WebDir serves a built storefront when set
	WebDir     string
	CORSOrigin string
	// ServiceName names the server spans
	ServiceName string
}

func NewRouter(handlers *Handlers, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(handlers.jwtService)
	optional := middleware.OptionalAuthMiddleware(handlers.jwtService)
	adminOnly := middleware.RequireRole(user.RoleAdmin)

	public := func(f http.HandlerFunc) http.Handler { return optional(f) }
	customer := func(f http.HandlerFunc) http.Handler { return authed(f) }
	admin := func(f http.HandlerFunc) http.Handler { return authed(adminOnly(f)) }

	// Static files (web UI)
	if cfg.WebDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.WebDir)))
	}

	mux.HandleFunc("GET /health", handlers.Health)

	// Payment gateway
	mux.HandleFunc("GET /api/payment/config", handlers.PaymentConfig)
	mux.Handle("POST /api/create-transaction", customer(handlers.CreateTransaction))
	mux.HandleFunc("POST /api/midtrans-notification", handlers.MidtransNotification)

	// Catalog
	mux.Handle("GET /api/products", public(handlers.GetProducts))
	mux.Handle("GET /api/products/{id}", public(handlers.GetProduct))
	mux.Handle("POST /api/products", admin(handlers.CreateProduct))
	mux.Handle("PUT /api/products/{id}", admin(handlers.UpdateProduct))
	mux.Handle("DELETE /api/products/{id}", admin(handlers.DeleteProduct))
	mux.Handle("POST /api/products/{id}/stock", admin(handlers.AdjustStock))
	mux.Handle("GET /api/categories", public(handlers.ListCategories))
	mux.Handle("GET /api/categories/{id}", public(handlers.GetCategory))
	mux.Handle("POST /api/categories", admin(handlers.CreateCategory))
	mux.Handle("GET /api/coupons", public(handlers.ListCoupons))

	// Cart
	mux.Handle("GET /api/cart", customer(handlers.GetCart))
	mux.Handle("DELETE /api/cart", customer(handlers.ClearCart))
	mux.Handle("POST /api/cart/items", customer(handlers.AddToCart))
	mux.Handle("PUT /api/cart/items/{id}", customer(handlers.SetCartQuantity))
	mux.Handle("DELETE /api/cart/items/{id}", customer(handlers.RemoveFromCart))
	mux.Handle("POST /api/cart/items/{id}/save", customer(handlers.SaveForLater))
	mux.Handle("POST /api/cart/saved/{id}/restore", customer(handlers.RestoreSaved))
	mux.Handle("DELETE /api/cart/saved/{id}", customer(handlers.RemoveSaved))

	// Checkout
	mux.Handle("POST /api/checkout/quote", customer(handlers.Quote))
	mux.Handle("POST /api/checkout", customer(handlers.Checkout))
	mux.Handle("GET /api/checkout/{orderID}", customer(handlers.GetCheckoutSession))
	mux.Handle("POST /api/checkout/{orderID}/outcome", customer(handlers.ReportOutcome))
	mux.Handle("POST /api/checkout/{orderID}/resolve", customer(handlers.ResolveCheckout))

	// Orders
	mux.Handle("GET /api/orders", customer(handlers.GetOrders))
	mux.Handle("GET /api/orders/{id}", customer(handlers.GetOrder))
	mux.Handle("DELETE /api/orders/{id}", customer(handlers.RemoveOrder))

	// Notifications
	mux.Handle("GET /api/notifications", customer(handlers.GetNotifications))
	mux.Handle("GET /api/notifications/unread-count", customer(handlers.UnreadCount))
	mux.Handle("POST /api/notifications/read-all", customer(handlers.MarkAllNotificationsRead))
	mux.Handle("POST /api/notifications/{id}/read", customer(handlers.MarkNotificationRead))
	mux.Handle("DELETE /api/notifications/{id}", customer(handlers.DeleteNotification))
	mux.Handle("DELETE /api/notifications", customer(handlers.ClearNotifications))

	// Admin
	mux.Handle("GET /api/admin/orders", admin(handlers.AdminOrders))
	mux.Handle("POST /api/admin/orders/{id}/status", admin(handlers.ChangeOrderStatus))
	mux.Handle("GET /api/admin/reports/summary", admin(handlers.ReportSummary))
	mux.Handle("GET /api/admin/reports/low-stock", admin(handlers.LowStock))
	mux.Handle("POST /api/admin/notifications", admin(handlers.PublishNotification))

	// Auth
	mux.HandleFunc("POST /api/auth/register", handlers.Register)
	mux.HandleFunc("POST /api/auth/login", handlers.Login)
	mux.HandleFunc("POST /api/auth/logout", handlers.Logout)
	mux.HandleFunc("POST /api/auth/refresh", handlers.Refresh)
	mux.Handle("GET /api/auth/me", customer(handlers.Me))
	mux.Handle("PUT /api/auth/profile", customer(handlers.UpdateProfile))

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "pharmacy-storefront"
	}

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	return otelhttp.NewHandler(handler, serviceName)
}
