package api

import (
	"net/http"

	"github.com/kaleidoswap/desktop-app/internal/shutdown"
)

type closeResponse struct {
	AllowClose bool   `json:"allow_close"`
	SessionID  string `json:"session_id,omitempty"`
	InProgress bool   `json:"in_progress,omitempty"`
}

// handleCloseRequest is called when the user closes the window. With no
// node running the window may close at once. Otherwise the close sequence
// runs in the background and ends with a close-window event.
func (s *Server) handleCloseRequest(w http.ResponseWriter, _ *http.Request) {
	if !s.coordinator.NodeRunning() {
		writeJSON(w, http.StatusOK, closeResponse{AllowClose: true})
		return
	}

	sessionID, ok := s.coordinator.RunAsync(s.releaseWindow, s.closeFinished)
	if !ok {
		writeJSON(w, http.StatusAccepted, closeResponse{InProgress: true})
		return
	}
	s.logger.Info("close sequence started", "session_id", sessionID)
	writeJSON(w, http.StatusAccepted, closeResponse{SessionID: sessionID})
}

// releaseWindow tells the shell it may close the window now.
func (s *Server) releaseWindow() {
	if err := s.hub.Emit(EventCloseWindow, ""); err != nil {
		s.logger.Warn("emitting close-window", "error", err)
	}
}

func (s *Server) closeFinished(res shutdown.Result) {
	s.logger.Info("close sequence finished",
		"session_id", res.SessionID,
		"fast_path", res.FastPath,
		"attempts", res.Attempts,
		"force_killed", res.ForceKilled,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	if s.onClose != nil {
		s.onClose(res)
	}
}
