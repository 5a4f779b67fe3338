package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaleidoswap/desktop-app/internal/node"
)

func startBody(account string) map[string]any {
	return map[string]any{
		"network":                 "regtest",
		"daemon_listening_port":   "3001",
		"ldk_peer_listening_port": 9735,
		"account_name":            account,
	}
}

// waitNodeStopped waits for the supervisor to report no live process.
func waitNodeStopped(t *testing.T, env *testEnv) {
	t.Helper()
	select {
	case <-env.srv.supervisor.ExitNotify():
	case <-time.After(5 * time.Second):
		t.Fatal("node did not exit")
	}
}

func TestPortValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{`3001`, 3001, false},
		{`"9735"`, 9735, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`1.5`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p portValue
			err := json.Unmarshal([]byte(tt.in), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && int(p) != tt.want {
				t.Errorf("port = %d, want %d", p, tt.want)
			}
		})
	}
}

func TestNodeQueries_WhenStopped(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/node/running", nil)
	requireStatus(t, w, http.StatusOK)
	if got := decode[map[string]bool](t, w); got["running"] {
		t.Error("running = true with no node")
	}

	w = env.do(t, http.MethodGet, "/api/v1/node/account", nil)
	requireStatus(t, w, http.StatusOK)
	if got := decode[map[string]*string](t, w); got["account_name"] != nil {
		t.Errorf("account_name = %v, want null", *got["account_name"])
	}

	w = env.do(t, http.MethodGet, "/api/v1/node/supported", nil)
	requireStatus(t, w, http.StatusOK)
	if got := decode[map[string]bool](t, w); got["supported"] != node.LocalNodeSupported() {
		t.Errorf("supported = %v, want %v", got["supported"], node.LocalNodeSupported())
	}

	w = env.do(t, http.MethodGet, "/api/v1/node/status", nil)
	requireStatus(t, w, http.StatusOK)
	if got := decode[node.Stats](t, w); got.Status != node.StatusStopped {
		t.Errorf("status = %q, want stopped", got.Status)
	}
}

func TestStopNode_NotRunning(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/node/stop", nil)
	requireStatus(t, w, http.StatusConflict)
	if got := decode[Error](t, w); got.Message != "RGB Lightning Node is not running." {
		t.Errorf("message = %q", got.Message)
	}
}

func TestStartNode_Validation(t *testing.T) {
	env := newTestEnv(t)
	requireLocalNode(t)

	tests := []struct {
		name string
		body any
	}{
		{"invalid json", "{"},
		{"unknown network", map[string]any{"network": "litecoin", "daemon_listening_port": 3001, "ldk_peer_listening_port": 9735, "account_name": "alice"}},
		{"missing account", map[string]any{"network": "regtest", "daemon_listening_port": 3001, "ldk_peer_listening_port": 9735}},
		{"same ports", map[string]any{"network": "regtest", "daemon_listening_port": 3001, "ldk_peer_listening_port": 3001, "account_name": "alice"}},
		{"bad port string", map[string]any{"network": "regtest", "daemon_listening_port": "x", "ldk_peer_listening_port": 9735, "account_name": "alice"}},
		{"escaping datapath", map[string]any{"network": "regtest", "datapath": "../outside", "daemon_listening_port": 3001, "ldk_peer_listening_port": 9735, "account_name": "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/node/start", tt.body)
			requireStatus(t, w, http.StatusBadRequest)
		})
	}

	if env.srv.supervisor.IsRunning() {
		t.Error("a rejected start left a node running")
	}
}

func TestStartNode_SpawnFailure(t *testing.T) {
	requireLocalNode(t)
	env := newTestEnvWithBinary(t, filepath.Join(t.TempDir(), "missing-binary"))

	w := env.do(t, http.MethodPost, "/api/v1/node/start", startBody("alice"))
	requireStatus(t, w, http.StatusInternalServerError)

	if env.srv.supervisor.IsRunning() {
		t.Error("IsRunning() = true after failed spawn")
	}
	if env.srv.supervisor.Status() != node.StatusStopped {
		t.Errorf("status = %q, want stopped", env.srv.supervisor.Status())
	}
}

func TestNodeLifecycle(t *testing.T) {
	requireLocalNode(t)
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/node/start", startBody("alice"))
	requireStatus(t, w, http.StatusOK)
	if got := decode[map[string]string](t, w); got["status"] != string(node.StatusRunning) {
		t.Errorf("status = %q, want running", got["status"])
	}

	// Second start is rejected and leaves the first run alone.
	w = env.do(t, http.MethodPost, "/api/v1/node/start", startBody("bob"))
	requireStatus(t, w, http.StatusConflict)

	w = env.do(t, http.MethodGet, "/api/v1/node/account", nil)
	if got := decode[map[string]*string](t, w); got["account_name"] == nil || *got["account_name"] != "alice" {
		t.Errorf("account_name = %v, want alice", got["account_name"])
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"?account_name=alice", true},
		{"?account_name=bob", false},
	}
	for _, tt := range tests {
		w = env.do(t, http.MethodGet, "/api/v1/node/running"+tt.query, nil)
		if got := decode[map[string]bool](t, w); got["running"] != tt.want {
			t.Errorf("running%s = %v, want %v", tt.query, got["running"], tt.want)
		}
	}

	if _, err := os.Stat(filepath.Join(env.dataRoot, "alice")); err != nil {
		t.Errorf("default data dir not created: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/v1/node/stop", nil)
	requireStatus(t, w, http.StatusOK)
	waitNodeStopped(t, env)

	w = env.do(t, http.MethodGet, "/api/v1/node/running", nil)
	if got := decode[map[string]bool](t, w); got["running"] {
		t.Error("running = true after stop")
	}
}

func TestStartNode_UsesAccountDatapath(t *testing.T) {
	requireLocalNode(t)
	env := newTestEnv(t)

	acc := testAccountBody("carol")
	acc["datapath"] = "wallets/carol"
	requireStatus(t, env.do(t, http.MethodPost, "/api/v1/accounts", acc), http.StatusCreated)

	w := env.do(t, http.MethodPost, "/api/v1/node/start", startBody("carol"))
	requireStatus(t, w, http.StatusOK)

	if _, err := os.Stat(filepath.Join(env.dataRoot, "wallets", "carol")); err != nil {
		t.Errorf("account datapath not used: %v", err)
	}
}

func TestGetNodeLogs(t *testing.T) {
	env := newTestEnv(t)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		env.cache.Append(line)
	}

	tests := []struct {
		query     string
		wantCode  int
		wantLogs  []string
		wantTotal int
	}{
		{"?page=1&page_size=2", http.StatusOK, []string{"a", "b"}, 5},
		{"?page=3&page_size=2", http.StatusOK, []string{"e"}, 5},
		{"?page=4&page_size=2", http.StatusOK, []string{}, 5},
		{"", http.StatusOK, []string{"a", "b", "c", "d", "e"}, 5},
		{"?page=0&page_size=2", http.StatusBadRequest, nil, 0},
		{"?page=1&page_size=0", http.StatusBadRequest, nil, 0},
		{"?page=x", http.StatusBadRequest, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/node/logs"+tt.query, nil)
			requireStatus(t, w, tt.wantCode)
			if tt.wantCode != http.StatusOK {
				return
			}
			got := decode[logsResponse](t, w)
			if got.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.Total, tt.wantTotal)
			}
			if strings.Join(got.Logs, ",") != strings.Join(tt.wantLogs, ",") || got.Logs == nil {
				t.Errorf("logs = %v, want %v", got.Logs, tt.wantLogs)
			}
		})
	}
}

func TestSaveLogs(t *testing.T) {
	env := newTestEnv(t)
	env.cache.Append("first")
	env.cache.Append("second")

	path := filepath.Join(t.TempDir(), "node.log")
	w := env.do(t, http.MethodPost, "/api/v1/node/logs/save", map[string]string{"file_path": path})
	requireStatus(t, w, http.StatusOK)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved logs: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("saved = %q", data)
	}

	w = env.do(t, http.MethodPost, "/api/v1/node/logs/save", map[string]string{"file_path": ""})
	requireStatus(t, w, http.StatusBadRequest)

	bad := filepath.Join(t.TempDir(), "missing", "dir", "node.log")
	w = env.do(t, http.MethodPost, "/api/v1/node/logs/save", map[string]string{"file_path": bad})
	requireStatus(t, w, http.StatusInternalServerError)
}
