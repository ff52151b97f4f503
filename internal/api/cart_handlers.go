package api

import (
	"net/http"

	"github.com/example/pharmacy-storefront/internal/command"
	"github.com/example/pharmacy-storefront/internal/domain/cart"
)

// CartResponse is the cart with its derived totals
type CartResponse struct {
	Items    []cart.Item `json:"items"`
	Saved    []cart.Item `json:"saved"`
	Count    int         `json:"count"`
	Subtotal int         `json:"subtotal"`
}

func newCartResponse(c *cart.Cart) CartResponse {
	resp := CartResponse{
		Items:    c.Items,
		Saved:    c.Saved,
		Count:    c.Count(),
		Subtotal: c.Subtotal(),
	}
	if resp.Items == nil {
		resp.Items = []cart.Item{}
	}
	if resp.Saved == nil {
		resp.Saved = []cart.Item{}
	}
	return resp
}

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), getUserID(r))
	h.respondCart(w, r, c, err)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	cmd.UserID = getUserID(r)

	c, err := h.cmdHandler.AddToCart(r.Context(), cmd)
	h.respondCart(w, r, c, err)
}

// SetCartQuantity sets a line's quantity; zero or less removes the line
func (h *Handlers) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var cmd command.SetCartQuantity
	if err := h.decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}
	cmd.UserID = getUserID(r)
	cmd.ProductID = r.PathValue("id")

	c, err := h.cmdHandler.SetCartQuantity(r.Context(), cmd)
	h.respondCart(w, r, c, err)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.RemoveFromCart(r.Context(), h.cartLine(r))
	h.respondCart(w, r, c, err)
}

// ClearCart empties the active lines and returns what is left in the saved list
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if err := h.cmdHandler.ClearCart(r.Context(), command.ClearCart{UserID: userID}); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.carts.Get(r.Context(), userID)
	h.respondCart(w, r, c, err)
}

func (h *Handlers) SaveForLater(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.SaveForLater(r.Context(), h.cartLine(r))
	h.respondCart(w, r, c, err)
}

func (h *Handlers) RestoreSaved(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.RestoreSaved(r.Context(), h.cartLine(r))
	h.respondCart(w, r, c, err)
}

func (h *Handlers) RemoveSaved(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.RemoveSaved(r.Context(), h.cartLine(r))
	h.respondCart(w, r, c, err)
}

func (h *Handlers) cartLine(r *http.Request) command.CartLine {
	return command.CartLine{UserID: getUserID(r), ProductID: r.PathValue("id")}
}
