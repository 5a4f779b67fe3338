package api

import (
	"net/http"
)

// handleWSTicket issues a single-use WebSocket ticket so the session token
// never appears in a URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     s.tickets.Issue(),
		"expires_in": int(s.tickets.TTL().Seconds()),
	})
}
