package api

import (
	"log"
	"net/http"

	"github.com/example/pharmacy-storefront/internal/readmodel"
)

type notificationsResponse struct {
	Notifications []*readmodel.NotificationReadModel `json:"notifications"`
	Unread        int                                `json:"unread"`
}

// GetNotifications lists the caller's inbox. Read failures degrade to an empty inbox.
func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.notifications.List(r.Context(), getUserID(r))
	if err != nil {
		log.Printf("[API] Error listing notifications: %v", err)
		items = []*readmodel.NotificationReadModel{}
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	respondJSON(w, http.StatusOK, notificationsResponse{Notifications: items, Unread: unread})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(r.Context(), getUserID(r), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkAllRead(r.Context(), getUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handlers) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Delete(r.Context(), getUserID(r), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

func (h *Handlers) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.Clear(r.Context(), getUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// UnreadCount backs the header badge
func (h *Handlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.UnreadCount(r.Context(), getUserID(r))
	if err != nil {
		log.Printf("[API] Error counting notifications: %v", err)
	}
	respondJSON(w, http.StatusOK, map[string]int{"unread": n})
}
