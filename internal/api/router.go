package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/metrics", s.handleMetrics)

			r.Route("/node", func(r chi.Router) {
				r.Post("/start", s.handleStartNode)
				r.Post("/stop", s.handleStopNode)
				r.Get("/logs", s.handleGetNodeLogs)
				r.Post("/logs/save", s.handleSaveLogs)
				r.Get("/running", s.handleIsNodeRunning)
				r.Get("/account", s.handleRunningNodeAccount)
				r.Get("/supported", s.handleLocalNodeSupported)
				r.Get("/status", s.handleNodeStatus)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", s.handleListAccounts)
				r.Post("/", s.handleCreateAccount)

				r.Get("/current", s.handleGetCurrentAccount)
				r.Post("/current", s.handleSetCurrentAccount)
				r.Delete("/current", s.handleClearCurrentAccount)

				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", s.handleGetAccount)
					r.Put("/", s.handleUpdateAccount)
					r.Delete("/", s.handleDeleteAccount)
					r.Put("/mnemonic", s.handleStoreMnemonic)
					r.Post("/mnemonic/reveal", s.handleRevealMnemonic)
				})
			})

			r.Route("/channel-orders", func(r chi.Router) {
				r.Get("/", s.handleListChannelOrders)
				r.Post("/", s.handleCreateChannelOrder)
				r.Delete("/{orderID}", s.handleDeleteChannelOrder)
			})

			r.Post("/app/close-request", s.handleCloseRequest)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
