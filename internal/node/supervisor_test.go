package node

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kaleidoswap/desktop-app/internal/logcache"
)

const (
	// wellBehavedNode exits cleanly on SIGTERM.
	wellBehavedNode = `#!/bin/sh
echo "node starting $1"
echo "args: $*"
trap 'echo "received TERM"; exit 0' TERM
while true; do sleep 0.05; done
`

	// crashingNode exits on its own shortly after start.
	crashingNode = `#!/bin/sh
echo "fatal: boom" 1>&2
exit 2
`

	// stubbornNode ignores SIGTERM.
	stubbornNode = `#!/bin/sh
trap '' TERM
echo "ignoring TERM"
while true; do sleep 0.05; done
`
)

func writeNodeScript(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rgb-lightning-node")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil { //nolint:gosec // test executable
		t.Fatalf("writing node script: %v", err)
	}
	return path
}

func newTestSupervisor(t *testing.T, script string) (*Supervisor, *logcache.Cache) {
	t.Helper()
	cache := logcache.New(100)
	s := NewSupervisor(Config{
		Binary:   writeNodeScript(t, script),
		DataRoot: t.TempDir(),
	}, cache)
	s.supported = func() bool { return true }
	t.Cleanup(func() {
		_ = s.ForceKill()
	})
	return s, cache
}

func testParams() StartParams {
	return StartParams{
		Network:    NetworkRegtest,
		DaemonPort: 3001,
		PeerPort:   9735,
	}
}

func waitExit(t *testing.T, s *Supervisor) {
	t.Helper()
	select {
	case <-s.ExitNotify():
	case <-time.After(5 * time.Second):
		t.Fatal("node did not exit within 5s")
	}
}

func waitForLine(t *testing.T, cache *logcache.Cache, substr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, line := range cache.Lines() {
			if strings.Contains(line, substr) {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("log line containing %q not seen; have %v", substr, cache.Lines())
}

func TestSupervisor_InitialState(t *testing.T) {
	s := NewSupervisor(Config{Binary: "/bin/true"}, nil)

	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusStopped)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true, want false")
	}
	if s.IsRunningForAccount("alice") {
		t.Error("IsRunningForAccount(alice) = true before start")
	}
	if account, ok := s.CurrentAccount(); ok || account != "" {
		t.Errorf("CurrentAccount() = (%q, %v), want empty", account, ok)
	}
	select {
	case <-s.ExitNotify():
	default:
		t.Error("ExitNotify() should be closed when nothing is running")
	}
	if s.Cache() == nil {
		t.Error("Cache() = nil, want default cache")
	}
}

func TestSupervisor_StartAndStop(t *testing.T) {
	s, cache := newTestSupervisor(t, wellBehavedNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if s.Status() != StatusRunning {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusRunning)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if !s.IsRunningForAccount("alice") {
		t.Error("IsRunningForAccount(alice) = false after Start")
	}
	if s.IsRunningForAccount("bob") {
		t.Error("IsRunningForAccount(bob) = true, want false")
	}
	if account, ok := s.CurrentAccount(); !ok || account != "alice" {
		t.Errorf("CurrentAccount() = (%q, %v), want (alice, true)", account, ok)
	}

	waitForLine(t, cache, "args:")
	waitForLine(t, cache, "--network regtest")

	start := time.Now()
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop() took %v, want non-blocking", elapsed)
	}
	waitExit(t, s)

	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q after exit, want %q", s.Status(), StatusStopped)
	}
	if s.IsRunningForAccount("alice") {
		t.Error("IsRunningForAccount(alice) = true after stop")
	}
	if _, ok := s.CurrentAccount(); ok {
		t.Error("CurrentAccount() still set after stop")
	}
	waitForLine(t, cache, "received TERM")
}

func TestSupervisor_DefaultDataDirPerAccount(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stats := s.Stats()
	want := filepath.Join(s.config.DataRoot, "alice")
	if stats.DataDir != want {
		t.Errorf("Stats.DataDir = %q, want %q", stats.DataDir, want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Errorf("data directory %q not created: %v", want, err)
	}
	if stats.PID == 0 {
		t.Error("Stats.PID = 0 while running")
	}
	if stats.Params == nil || stats.Params.DaemonPort != 3001 {
		t.Errorf("Stats.Params = %+v, want daemon port 3001", stats.Params)
	}
}

func TestSupervisor_StartTwiceFails(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	for _, account := range []string{"bob", "alice"} {
		err := s.Start(testParams(), account)
		if !errors.Is(err, ErrAlreadyRunning) {
			t.Errorf("Start(%s) error = %v, want ErrAlreadyRunning", account, err)
		}
	}

	if account, _ := s.CurrentAccount(); account != "alice" {
		t.Errorf("CurrentAccount() = %q, want alice", account)
	}
	if s.Status() != StatusRunning {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusRunning)
	}
}

func TestSupervisor_ConcurrentStartOnlyOneWins(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Start(testParams(), "alice")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case !errors.Is(err, ErrAlreadyRunning):
				t.Errorf("Start() error = %v, want nil or ErrAlreadyRunning", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successful starts = %d, want 1", successes)
	}
}

func TestSupervisor_StopWhenStopped(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)

	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusStopped)
	}
	if err := s.Shutdown(); err != nil {
		t.Errorf("Shutdown() on stopped supervisor error = %v, want nil", err)
	}
}

func TestSupervisor_CrashIsDistinguishedFromStop(t *testing.T) {
	s, cache := newTestSupervisor(t, crashingNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitExit(t, s)

	if s.Status() != StatusCrashed {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusCrashed)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after crash")
	}
	if _, ok := s.CurrentAccount(); ok {
		t.Error("CurrentAccount() still set after crash")
	}
	if stats := s.Stats(); stats.LastError == "" {
		t.Error("Stats.LastError empty after crash")
	}
	waitForLine(t, cache, "fatal: boom")

	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() after crash error = %v, want ErrNotRunning", err)
	}

	// A crash needs an explicit new start.
	time.Sleep(100 * time.Millisecond)
	if s.Status() != StatusCrashed {
		t.Errorf("Status() = %q, want crashed to persist", s.Status())
	}
	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() after crash error = %v", err)
	}
}

func TestSupervisor_ForceKill(t *testing.T) {
	s, cache := newTestSupervisor(t, stubbornNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForLine(t, cache, "ignoring TERM")

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if s.Status() != StatusShuttingDown {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusShuttingDown)
	}
	if !s.IsRunningForAccount("alice") {
		t.Error("IsRunningForAccount(alice) = false while shutting down")
	}

	exited := s.ExitNotify()
	if err := s.ForceKill(); err != nil {
		t.Fatalf("ForceKill() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after ForceKill")
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusStopped)
	}

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("killed process was not reaped")
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q after reap, want %q", s.Status(), StatusStopped)
	}

	if err := s.ForceKill(); err != nil {
		t.Errorf("second ForceKill() error = %v, want nil", err)
	}
}

func TestSupervisor_PlatformUnsupported(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)
	s.supported = func() bool { return false }

	if err := s.Start(testParams(), "alice"); !errors.Is(err, ErrPlatformUnsupported) {
		t.Errorf("Start() error = %v, want ErrPlatformUnsupported", err)
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusStopped)
	}
}

func TestSupervisor_SpawnFailed(t *testing.T) {
	var transitions []Transition
	s := NewSupervisor(Config{
		Binary:   "/nonexistent/rgb-lightning-node",
		DataRoot: t.TempDir(),
		OnStatusChange: func(tr Transition) {
			transitions = append(transitions, tr)
		},
	}, nil)
	s.supported = func() bool { return true }

	if err := s.Start(testParams(), "alice"); !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("Start() error = %v, want ErrSpawnFailed", err)
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", s.Status(), StatusStopped)
	}
	if _, ok := s.CurrentAccount(); ok {
		t.Error("CurrentAccount() set after failed spawn")
	}
	if len(transitions) != 2 || transitions[1].To != StatusStopped || transitions[1].Error == "" {
		t.Errorf("transitions = %+v, want starting then stopped with error", transitions)
	}
}

func TestSupervisor_StartRejectsInvalidInput(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)

	tests := []struct {
		name    string
		params  StartParams
		account string
	}{
		{name: "empty account", params: testParams(), account: ""},
		{name: "account with slash", params: testParams(), account: "../evil"},
		{name: "unknown network", params: StartParams{Network: "litecoin", DaemonPort: 3001, PeerPort: 9735}, account: "alice"},
		{name: "zero daemon port", params: StartParams{Network: NetworkRegtest, PeerPort: 9735}, account: "alice"},
		{name: "same ports", params: StartParams{Network: NetworkRegtest, DaemonPort: 3001, PeerPort: 3001}, account: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Start(tt.params, tt.account)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Start() error = %v, want ErrInvalidParams", err)
			}
			if s.IsRunning() {
				t.Error("IsRunning() = true after rejected start")
			}
		})
	}
}

func TestSupervisor_NetworkIsNormalised(t *testing.T) {
	s, cache := newTestSupervisor(t, wellBehavedNode)

	params := testParams()
	params.Network = "ReGtEsT"
	if err := s.Start(params, "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForLine(t, cache, "--network regtest")
}

func TestSupervisor_StatusTransitions(t *testing.T) {
	var mu sync.Mutex
	var got []Status

	cache := logcache.New(100)
	s := NewSupervisor(Config{
		Binary:   writeNodeScript(t, wellBehavedNode),
		DataRoot: t.TempDir(),
		OnStatusChange: func(tr Transition) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, tr.To)
		},
	}, cache)
	s.supported = func() bool { return true }

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitExit(t, s)

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusStarting, StatusRunning, StatusShuttingDown, StatusStopped}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSupervisor_SaveLogsToFile(t *testing.T) {
	cache := logcache.New(10)
	cache.Append("first")
	cache.Append("second")
	s := NewSupervisor(Config{Binary: "/bin/true"}, cache)

	path := filepath.Join(t.TempDir(), "node.log")
	if err := s.SaveLogsToFile(path); err != nil {
		t.Fatalf("SaveLogsToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved logs: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("saved logs = %q, want %q", data, "first\nsecond\n")
	}
}

func TestSupervisor_SaveLogsToFileErrors(t *testing.T) {
	s := NewSupervisor(Config{Binary: "/bin/true"}, logcache.New(10))

	tests := []struct {
		name string
		path string
	}{
		{name: "empty path", path: ""},
		{name: "missing directory", path: filepath.Join(t.TempDir(), "missing", "node.log")},
		{name: "path is a directory", path: t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SaveLogsToFile(tt.path); !errors.Is(err, ErrIO) {
				t.Errorf("SaveLogsToFile(%q) error = %v, want ErrIO", tt.path, err)
			}
		})
	}
}

func TestSupervisor_PanicPoisonsState(t *testing.T) {
	s := NewSupervisor(Config{Binary: "/bin/true"}, nil)
	s.supported = func() bool { return true }

	poison(t, s)

	if err := s.Start(testParams(), "alice"); !errors.Is(err, ErrLockUnavailable) {
		t.Errorf("Start() error = %v, want ErrLockUnavailable", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrLockUnavailable) {
		t.Errorf("Stop() error = %v, want ErrLockUnavailable", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true on poisoned supervisor")
	}
}

// poison panics inside the supervisor lock.
func poison(t *testing.T, s *Supervisor) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate")
		}
	}()
	_ = s.withLock(func() error {
		panic("corrupted")
	})
}

func TestSupervisor_PoisonedStillKillsLiveNode(t *testing.T) {
	s, cache := newTestSupervisor(t, stubbornNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForLine(t, cache, "ignoring TERM")
	poison(t, s)

	if !s.IsRunning() {
		t.Fatal("IsRunning() = false while the node process is alive")
	}
	exited := s.ExitNotify()
	select {
	case <-exited:
		t.Fatal("ExitNotify() closed while the node process is alive")
	default:
	}

	if err := s.ForceKill(); err != nil {
		t.Fatalf("ForceKill() error = %v", err)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("killed node was not reaped")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after ForceKill")
	}
	if err := s.ForceKill(); err != nil {
		t.Errorf("second ForceKill() error = %v, want nil", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrLockUnavailable) {
		t.Errorf("Stop() error = %v, want ErrLockUnavailable", err)
	}
}

func TestSupervisor_PoisonedShutdownStillTerminates(t *testing.T) {
	s, cache := newTestSupervisor(t, wellBehavedNode)

	if err := s.Start(testParams(), "alice"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForLine(t, cache, "node starting")
	poison(t, s)

	exited := s.ExitNotify()
	if err := s.Shutdown(); !errors.Is(err, ErrLockUnavailable) {
		t.Errorf("Shutdown() error = %v, want ErrLockUnavailable", err)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("node did not exit after Shutdown")
	}
	waitForLine(t, cache, "received TERM")
	if s.IsRunning() {
		t.Error("IsRunning() = true after the node exited")
	}
}

func TestSupervisor_StartRejectsDataRoot(t *testing.T) {
	s, _ := newTestSupervisor(t, wellBehavedNode)

	params := testParams()
	params.DataPath = s.config.DataRoot
	if err := s.Start(params, "alice"); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Start() with the data root as datapath error = %v, want ErrInvalidParams", err)
	}

	params.DataPath = "."
	if err := s.Start(params, "alice"); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Start() with datapath %q error = %v, want ErrInvalidParams", ".", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after rejected start")
	}
}

func TestStatus_Live(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusStopped, false},
		{StatusStarting, true},
		{StatusRunning, true},
		{StatusShuttingDown, true},
		{StatusCrashed, false},
	}

	for _, tt := range tests {
		if got := tt.status.Live(); got != tt.want {
			t.Errorf("%q.Live() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
