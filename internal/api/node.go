package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kaleidoswap/desktop-app/internal/account"
	"github.com/kaleidoswap/desktop-app/internal/node"
)

// Log paging defaults when the query omits them.
const (
	defaultLogPage     = 1
	defaultLogPageSize = 100
)

// portValue accepts a port as a JSON number or a numeric string, since
// accounts store ports as text.
type portValue int

func (p *portValue) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid port %q", data)
	}
	*p = portValue(n)
	return nil
}

type startNodeRequest struct {
	Network     string    `json:"network"`
	Datapath    string    `json:"datapath"`
	DaemonPort  portValue `json:"daemon_listening_port"`
	PeerPort    portValue `json:"ldk_peer_listening_port"`
	AccountName string    `json:"account_name"`
}

type saveLogsRequest struct {
	FilePath string `json:"file_path"`
}

type logsResponse struct {
	Logs  []string `json:"logs"`
	Total int      `json:"total"`
}

// handleStartNode spawns the local node for an account.
func (s *Server) handleStartNode(w http.ResponseWriter, r *http.Request) {
	var req startNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	datapath := req.Datapath
	if datapath == "" && req.AccountName != "" {
		// Reuse the stored account's directory so delete removes the same one.
		acc, err := s.accounts.GetByName(r.Context(), req.AccountName)
		switch {
		case err == nil:
			datapath = acc.Datapath
		case !errors.Is(err, account.ErrAccountNotFound):
			s.logger.Error("looking up account for node start", "account", req.AccountName, "error", err)
			writeInternalError(w, "failed to load account")
			return
		}
	}

	params := node.StartParams{
		Network:    node.Network(req.Network),
		DataPath:   datapath,
		DaemonPort: int(req.DaemonPort),
		PeerPort:   int(req.PeerPort),
	}
	if err := s.supervisor.Start(params, req.AccountName); err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": s.supervisor.Status(),
	})
}

// handleStopNode asks the node to terminate without waiting for it.
func (s *Server) handleStopNode(w http.ResponseWriter, _ *http.Request) {
	if err := s.supervisor.Stop(); err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": s.supervisor.Status(),
	})
}

// handleGetNodeLogs returns one page of captured node output.
func (s *Server) handleGetNodeLogs(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultLogPage)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	size, err := queryInt(r, "page_size", defaultLogPageSize)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	lines, total, err := s.supervisor.Cache().Page(page, size)
	if err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: lines, Total: total})
}

// handleSaveLogs dumps the current log cache to a file.
func (s *Server) handleSaveLogs(w http.ResponseWriter, r *http.Request) {
	var req saveLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.FilePath == "" {
		writeBadRequest(w, "file_path is required")
		return
	}

	if err := s.supervisor.SaveLogsToFile(req.FilePath); err != nil {
		s.logger.Error("saving node logs", "path", req.FilePath, "error", err)
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_path": req.FilePath,
		"lines":     s.supervisor.Cache().Len(),
	})
}

// handleIsNodeRunning reports liveness, optionally scoped to an account.
func (s *Server) handleIsNodeRunning(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("account_name")
	running := s.supervisor.IsRunning()
	if name != "" {
		running = s.supervisor.IsRunningForAccount(name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"running": running})
}

// handleRunningNodeAccount returns the account owning the node, or null.
func (s *Server) handleRunningNodeAccount(w http.ResponseWriter, _ *http.Request) {
	var name *string
	if acc, ok := s.supervisor.CurrentAccount(); ok {
		name = &acc
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_name": name})
}

// handleLocalNodeSupported reports whether this build can run a local node.
func (s *Server) handleLocalNodeSupported(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"supported": node.LocalNodeSupported()})
}

// handleNodeStatus returns supervisor statistics.
func (s *Server) handleNodeStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.Stats())
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}
