package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/kaleidoswap/desktop-app/internal/shutdown"
)

func TestCloseRequest_NoNode(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/app/close-request", nil)
	requireStatus(t, w, http.StatusOK)
	if got := decode[closeResponse](t, w); !got.AllowClose {
		t.Error("allow_close = false with no node running")
	}
}

func TestCloseRequest_StopsNodeThenReleasesWindow(t *testing.T) {
	requireLocalNode(t)
	env := newTestEnv(t)
	results := make(chan shutdown.Result, 1)
	env.srv.onClose = func(res shutdown.Result) { results <- res }

	addr := startTestServer(t, env)
	ws := connectWebSocket(t, env, addr)

	requireStatus(t, env.do(t, http.MethodPost, "/api/v1/node/start", startBody("alice")), http.StatusOK)

	w := env.do(t, http.MethodPost, "/api/v1/app/close-request", nil)
	requireStatus(t, w, http.StatusAccepted)
	resp := decode[closeResponse](t, w)
	if resp.AllowClose || resp.SessionID == "" {
		t.Fatalf("response = %+v", resp)
	}

	// A second request while the first runs does not start another sequence.
	w = env.do(t, http.MethodPost, "/api/v1/app/close-request", nil)
	if w.Code == http.StatusAccepted {
		if got := decode[closeResponse](t, w); got.SessionID != "" {
			t.Errorf("second close request started session %s", got.SessionID)
		}
	}

	var events []string
	for {
		msg := readEvent(t, ws)
		if msg.Type != WSTypeEvent {
			continue
		}
		events = append(events, msg.EventType)
		if msg.EventType == EventCloseWindow {
			break
		}
	}
	if events[0] != shutdown.EventTriggerShutdown {
		t.Errorf("first event = %q, want %q", events[0], shutdown.EventTriggerShutdown)
	}

	select {
	case res := <-results:
		if res.SessionID != resp.SessionID || res.ForceKilled || res.FastPath {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("close sequence did not report a result")
	}
	if env.srv.supervisor.IsRunning() {
		t.Error("node still running after close sequence")
	}
}
