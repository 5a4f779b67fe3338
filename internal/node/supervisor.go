package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kaleidoswap/desktop-app/internal/logcache"
	"github.com/kaleidoswap/desktop-app/internal/process"
)

// processName identifies the node in logs.
const processName = "rgb-lightning-node"

// Status is the lifecycle state of the local node.
type Status string

const (
	StatusStopped      Status = "stopped"
	StatusStarting     Status = "starting"
	StatusRunning      Status = "running"
	StatusShuttingDown Status = "shutting_down"
	StatusCrashed      Status = "crashed"
)

// Live reports whether a process handle exists in this state.
func (s Status) Live() bool {
	switch s {
	case StatusStarting, StatusRunning, StatusShuttingDown:
		return true
	default:
		return false
	}
}

// Config holds supervisor settings.
type Config struct {
	// Binary is the path to the rgb-lightning-node executable.
	Binary string

	// DataRoot is the directory relative data paths are resolved against.
	DataRoot string

	// Env are additional environment variables for the node (key=value).
	Env []string

	// OnStatusChange is called after every status transition, outside the
	// supervisor lock. Transitions from concurrent operations may arrive
	// out of order; Seq is strictly increasing.
	OnStatusChange func(Transition)
}

// Transition describes one status change.
type Transition struct {
	Seq     uint64    `json:"seq"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	Account string    `json:"account,omitempty"`
	PID     int       `json:"pid,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// closedChan is returned by ExitNotify when no process is live.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Supervisor owns the lifecycle of the single local node process.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Each one holds the
//     supervisor lock for its full duration; none of them wait for the
//     process to exit.
type Supervisor struct {
	config    Config
	cache     *logcache.Cache
	logger    Logger
	supported func() bool

	mu       sync.Mutex
	poisoned bool
	status   Status
	handle   *process.Handle
	account  string
	params   StartParams
	dataDir  string
	lastErr  error
	seq      uint64
	pending  []Transition

	// live mirrors handle outside the lock so a poisoned supervisor can
	// still see and kill its child.
	live atomic.Pointer[process.Handle]
}

// NewSupervisor creates a stopped supervisor writing node output to cache.
func NewSupervisor(cfg Config, cache *logcache.Cache) *Supervisor {
	if cache == nil {
		cache = logcache.New(logcache.DefaultCapacity)
	}
	return &Supervisor{
		config:    cfg,
		cache:     cache,
		logger:    noopLogger{},
		supported: LocalNodeSupported,
		status:    StatusStopped,
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Cache returns the log cache the node writes to.
func (s *Supervisor) Cache() *logcache.Cache {
	return s.cache
}

// Start spawns the node for account. It fails with ErrAlreadyRunning while
// another run is live, leaving that run untouched. A crashed supervisor can
// be started again.
func (s *Supervisor) Start(params StartParams, account string) error {
	return s.withLock(func() error {
		if s.status.Live() {
			return fmt.Errorf("%w for account %q", ErrAlreadyRunning, s.account)
		}
		if !s.supported() {
			return ErrPlatformUnsupported
		}
		if err := validateAccountName(account); err != nil {
			return err
		}
		network, err := ParseNetwork(string(params.Network))
		if err != nil {
			return err
		}
		params.Network = network
		if err := params.Validate(); err != nil {
			return err
		}

		dataDir := params.ResolveDataDir(s.config.DataRoot, account)
		if s.config.DataRoot != "" && sameDir(dataDir, s.config.DataRoot) {
			return fmt.Errorf("%w: data directory %q is the shared data root", ErrInvalidParams, dataDir)
		}
		if err := os.MkdirAll(dataDir, 0750); err != nil {
			return fmt.Errorf("%w: creating data directory: %w", ErrSpawnFailed, err)
		}

		prev := s.status
		s.setStatus(StatusStarting, account, 0, nil)

		s.logger.Info("starting node",
			"account", account,
			"network", params.Network,
			"data_dir", dataDir,
			"daemon_port", params.DaemonPort,
			"peer_port", params.PeerPort,
		)

		h, err := process.Spawn(process.Config{
			Name:   processName,
			Binary: s.config.Binary,
			Args:   params.BuildArgs(dataDir),
			Env:    s.config.Env,
			OnLine: s.cache.Append,
			OnExit: s.handleExit,
		}, s.logger)
		if err != nil {
			s.lastErr = err
			s.setStatus(prev, "", 0, err)
			return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
		}

		s.handle = h
		s.live.Store(h)
		s.account = account
		s.params = params
		s.dataDir = dataDir
		s.lastErr = nil
		s.setStatus(StatusRunning, account, h.PID(), nil)
		return nil
	})
}

// Stop requests graceful termination and returns without waiting for the
// process to exit.
func (s *Supervisor) Stop() error {
	return s.withLock(func() error {
		if !s.status.Live() {
			return ErrNotRunning
		}
		return s.requestTermination()
	})
}

// Shutdown issues the same termination request as Stop for callers that
// poll IsRunning afterwards. A node that is already gone is not an error.
// On a poisoned supervisor the last spawned process is still asked to exit
// and ErrLockUnavailable is returned.
func (s *Supervisor) Shutdown() error {
	err := s.withLock(func() error {
		if !s.status.Live() {
			return nil
		}
		return s.requestTermination()
	})
	if errors.Is(err, ErrLockUnavailable) {
		if h := s.liveHandle(); h != nil {
			if termErr := h.Terminate(); termErr != nil {
				s.logger.Error("terminating node failed", "pid", h.PID(), "error", termErr)
			}
		}
	}
	return err
}

// requestTermination signals the live process. Caller must hold s.mu.
func (s *Supervisor) requestTermination() error {
	s.logger.Info("stopping node", "account", s.account, "pid", s.handle.PID())
	if err := s.handle.Terminate(); err != nil {
		return fmt.Errorf("requesting node stop: %w", err)
	}
	if s.status != StatusShuttingDown {
		s.setStatus(StatusShuttingDown, s.account, s.handle.PID(), nil)
	}
	return nil
}

// ForceKill kills the node process group and clears the handle without
// waiting for the exit. It is a no-op when nothing is live. On a poisoned
// supervisor it still kills the last spawned process if that is alive.
func (s *Supervisor) ForceKill() error {
	err := s.withLock(func() error {
		if s.handle == nil {
			return nil
		}
		h := s.handle
		if err := h.Kill(); err != nil {
			s.logger.Error("force kill failed", "pid", h.PID(), "error", err)
			return fmt.Errorf("%w: %w", ErrForceKillFailed, err)
		}

		s.logger.Warn("node force killed", "account", s.account, "pid", h.PID())
		s.handle = nil
		s.live.CompareAndSwap(h, nil)
		s.account = ""
		s.setStatus(StatusStopped, "", h.PID(), nil)
		return nil
	})
	if errors.Is(err, ErrLockUnavailable) {
		return s.killLive()
	}
	return err
}

// killLive kills the last spawned process without touching the guarded
// state. Used once that state is unavailable.
func (s *Supervisor) killLive() error {
	h := s.liveHandle()
	if h == nil {
		return nil
	}
	if err := h.Kill(); err != nil {
		s.logger.Error("force kill failed", "pid", h.PID(), "error", err)
		return fmt.Errorf("%w: %w", ErrForceKillFailed, err)
	}
	s.logger.Warn("node force killed with supervisor state unavailable", "pid", h.PID())
	return nil
}

// liveHandle returns the last spawned process if it has not been reaped.
func (s *Supervisor) liveHandle() *process.Handle {
	h := s.live.Load()
	if h == nil || h.Exited() {
		return nil
	}
	return h
}

// handleExit records the end of a run. Called by the process reaper after
// the last output line has reached the cache.
func (s *Supervisor) handleExit(h *process.Handle, err error) {
	_ = s.withLock(func() error {
		if s.handle != h {
			// Already cleared by ForceKill.
			return nil
		}
		account := s.account
		s.handle = nil
		s.live.CompareAndSwap(h, nil)
		s.account = ""
		s.lastErr = err

		if h.StopRequested() {
			s.logger.Info("node stopped", "account", account, "pid", h.PID())
			s.setStatus(StatusStopped, account, h.PID(), err)
			return nil
		}

		if err == nil {
			err = errors.New("exited without a stop request")
		}
		s.lastErr = err
		s.logger.Error("node crashed", "account", account, "pid", h.PID(), "error", err)
		s.setStatus(StatusCrashed, account, h.PID(), err)
		return nil
	})
}

// IsRunning reports whether a node process is live. Once the supervisor
// state has become unavailable it reports whether the last spawned process
// is still alive.
func (s *Supervisor) IsRunning() bool {
	var running bool
	err := s.withLock(func() error {
		running = s.status.Live()
		return nil
	})
	if errors.Is(err, ErrLockUnavailable) {
		return s.liveHandle() != nil
	}
	return running
}

// IsRunningForAccount reports whether a node process is live for account.
func (s *Supervisor) IsRunningForAccount(account string) bool {
	var running bool
	_ = s.withLock(func() error {
		running = s.status.Live() && s.account == account
		return nil
	})
	return running
}

// CurrentAccount returns the account owning the live node, if any.
func (s *Supervisor) CurrentAccount() (string, bool) {
	var account string
	_ = s.withLock(func() error {
		account = s.account
		return nil
	})
	return account, account != ""
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() Status {
	status := StatusStopped
	_ = s.withLock(func() error {
		status = s.status
		return nil
	})
	return status
}

// ExitNotify returns a channel closed once the current process has exited
// and its state has been recorded. It is already closed when nothing is live.
func (s *Supervisor) ExitNotify() <-chan struct{} {
	ch := (<-chan struct{})(closedChan)
	err := s.withLock(func() error {
		if s.handle != nil {
			ch = s.handle.Done()
		}
		return nil
	})
	if errors.Is(err, ErrLockUnavailable) {
		if h := s.liveHandle(); h != nil {
			ch = h.Done()
		}
	}
	return ch
}

// SaveLogsToFile writes the current log cache contents to path, replacing
// any existing file.
func (s *Supervisor) SaveLogsToFile(path string) error {
	return s.withLock(func() error {
		if path == "" {
			return fmt.Errorf("%w: file path is required", ErrIO)
		}
		f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %w", ErrIO, path, err)
		}
		n, werr := s.cache.WriteTo(f)
		cerr := f.Close()
		if werr != nil {
			return fmt.Errorf("%w: writing %s: %w", ErrIO, path, werr)
		}
		if cerr != nil {
			return fmt.Errorf("%w: closing %s: %w", ErrIO, path, cerr)
		}
		s.logger.Info("node logs saved", "path", path, "bytes", n)
		return nil
	})
}

// Stats returns statistics about the local node.
type Stats struct {
	Status    Status        `json:"status"`
	Account   string        `json:"account,omitempty"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Params    *StartParams  `json:"params,omitempty"`
	DataDir   string        `json:"data_dir,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	LogLines  int           `json:"log_lines"`
	Supported bool          `json:"supported"`
}

// Stats returns current statistics for the node. Params and DataDir are kept
// from the most recent run.
func (s *Supervisor) Stats() Stats {
	stats := Stats{Status: StatusStopped}
	_ = s.withLock(func() error {
		stats.Status = s.status
		stats.Account = s.account
		stats.Supported = s.supported()
		if s.handle != nil {
			stats.PID = s.handle.PID()
			stats.Uptime = time.Since(s.handle.StartTime())
		}
		if s.dataDir != "" {
			params := s.params
			stats.Params = &params
			stats.DataDir = s.dataDir
		}
		if s.lastErr != nil {
			stats.LastError = s.lastErr.Error()
		}
		return nil
	})
	stats.LogLines = s.cache.Len()
	return stats
}

// sameDir compares two paths after making them absolute.
func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// setStatus records a transition for delivery after the lock is released.
// Caller must hold s.mu.
func (s *Supervisor) setStatus(to Status, account string, pid int, err error) {
	s.seq++
	t := Transition{
		Seq:     s.seq,
		From:    s.status,
		To:      to,
		Account: account,
		PID:     pid,
		At:      time.Now(),
	}
	if err != nil {
		t.Error = err.Error()
	}
	s.status = to
	s.pending = append(s.pending, t)
}

// withLock runs fn under the supervisor lock and then delivers any status
// transitions fn recorded. A panic inside fn poisons the supervisor.
func (s *Supervisor) withLock(fn func() error) error {
	transitions, err := s.locked(fn)
	if s.config.OnStatusChange != nil {
		for _, t := range transitions {
			s.config.OnStatusChange(t)
		}
	}
	return err
}

func (s *Supervisor) locked(fn func() error) (transitions []Transition, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return nil, ErrLockUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			s.pending = nil
			panic(r)
		}
	}()

	err = fn()
	transitions = s.pending
	s.pending = nil
	return transitions, err
}
