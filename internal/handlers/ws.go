package handlers

import (
	"net/http"

	"github.com/kerucko/taskboard/internal/ws"
)

// Socket endpoints authenticate through a token query parameter since
// browsers cannot set headers on a websocket handshake.
func (h *Handler) wsAuth(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return "", false
	}
	claims, err := h.Auth.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func (h *Handler) serveHub(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.wsAuth(w, r)
		if !ok {
			return
		}
		hub.HandleConnection(w, r, userID)
	}
}

func (h *Handler) TaskSocket(w http.ResponseWriter, r *http.Request) {
	h.serveHub(h.TaskHub)(w, r)
}

func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	h.serveHub(h.ChatHub)(w, r)
}

// NotificationSocket additionally replays the caller's unread
// notifications right after the connection is attached.
func (h *Handler) NotificationSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.wsAuth(w, r)
	if !ok {
		return
	}
	h.NotifyHub.HandleConnection(w, r, userID)

	backlog, err := h.NotificationService.GetForUser(r.Context(), userID, true)
	if err != nil {
		h.log.Warn().Err(err).Msg("unread backlog fetch failed")
		return
	}
	for _, n := range backlog {
		h.NotifyHub.SendToUser(userID, "notification", n)
	}
}
