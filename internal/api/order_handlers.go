package api

import (
	"net/http"
	"strconv"

	"github.com/example/pharmacy-storefront/internal/command"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/notification"
	"github.com/example/pharmacy-storefront/internal/report"
	"github.com/example/pharmacy-storefront/internal/validation"
)

// orderView is an order read from the event store while its projection catches up
type orderView struct {
	*order.Order
	StatusText string `json:"status_text"`
}

// GetOrders lists the caller's order history
func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListOrdersByUser(r.Context(), getUserID(r)))
}

// GetOrder returns one order. Customers only see their own; admins see any.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := getUserID(r)

	o, ok, err := h.queryHandler.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ok {
		if o.UserID != userID && !isAdmin(r) {
			respondError(w, r, order.ErrOrderNotFound)
			return
		}
		respondJSON(w, http.StatusOK, o)
		return
	}

	agg, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if agg.UserID != userID && !isAdmin(r) {
		respondError(w, r, order.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, orderView{Order: agg, StatusText: agg.StatusText()})
}

// RemoveOrder hides an order from the caller's history
func (h *Handlers) RemoveOrder(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveOrderFromHistory{OrderID: r.PathValue("id"), UserID: getUserID(r)}
	if err := h.cmdHandler.RemoveOrderFromHistory(r.Context(), cmd); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order removed from history"})
}

// Admin Handlers

func (h *Handlers) period(r *http.Request) (report.Period, error) {
	q := r.URL.Query()
	rng := report.Range(q.Get("range"))
	if rng == "" {
		rng = report.RangeAll
	}
	return h.reports.Period(rng, q.Get("from"), q.Get("to"))
}

// AdminOrders lists every order, filterable by status and date range
func (h *Handlers) AdminOrders(w http.ResponseWriter, r *http.Request) {
	period, err := h.period(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" {
		if _, ok := order.ParseStatus(status); !ok {
			respondError(w, r, validation.Field("status", "unknown order status"))
			return
		}
	}
	respondJSON(w, http.StatusOK, h.reports.Orders(r.Context(), status, period))
}

// ChangeOrderStatus is the admin status edit
func (h *Handlers) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.ChangeOrderStatus
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	cmd.OrderID = r.PathValue("id")

	o, err := h.cmdHandler.ChangeOrderStatus(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderView{Order: o, StatusText: o.StatusText()})
}

func (h *Handlers) ReportSummary(w http.ResponseWriter, r *http.Request) {
	period, err := h.period(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	top := report.DefaultTopN
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondJSONError(w, "top must be a positive integer", http.StatusBadRequest)
			return
		}
		top = n
	}
	respondJSON(w, http.StatusOK, h.reports.Summary(r.Context(), period, top))
}

func (h *Handlers) LowStock(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reports.LowStock(r.Context()))
}

// PublishNotification sends an admin notice to one user or to every active customer
func (h *Handlers) PublishNotification(w http.ResponseWriter, r *http.Request) {
	var notice notification.Notice
	if err := h.decodeJSON(w, r, &notice); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := h.notifications.Publish(r.Context(), notice)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"delivered": n})
}
