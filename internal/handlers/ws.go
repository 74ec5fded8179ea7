package handlers

import (
	"net/http"
	"strconv"

	"github.com/askly/chat/internal/auth"
	"github.com/askly/chat/internal/store"
	"github.com/askly/chat/internal/ws"
)

// WSHandler guards the websocket endpoint. Browsers present the session
// cookie; other clients pass a short-lived ticket from /ws/ticket as a query
// parameter, since custom headers are not available on the upgrade request.
type WSHandler struct {
	Store store.Store
	Auth  *auth.Auth
	Hub   *ws.Hub
}

// Serve authenticates the request and hands it to the hub. An unauthenticated
// caller is rejected before the upgrade, so no client is ever registered.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID := h.socketUser(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ws.ServeWs(h.Hub, w, r, user.ID, user.Username)
}

// socketUser resolves the connecting user from ?ticket= or the session
// cookie; 0 means unauthenticated.
func (h *WSHandler) socketUser(r *http.Request) int {
	if ticket := r.URL.Query().Get("ticket"); ticket != "" {
		id, err := h.Auth.ValidateTicket(ticket)
		if err != nil {
			return 0
		}
		return id
	}
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return 0
	}
	value, err := h.Auth.VerifyCookie(cookie.Value)
	if err != nil {
		return 0
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return id
}
