package http

import (
	"net/http"

	"membership-backend/internal/domain"
)

type inboxResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int32                 `json:"total"`
	Unread        int32                 `json:"unread"`
}

func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	memberID := callerID(r)
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, total, err := h.services.Notifications.GetNotifications(r.Context(), memberID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	unread, err := h.services.Notifications.UnreadCount(r.Context(), memberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, inboxResponse{Notifications: notes, Total: total, Unread: unread})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.services.Notifications.MarkAsRead(r.Context(), callerID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
