package shutdown

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Close sequence policy.
const (
	PollInterval    = 100 * time.Millisecond
	MaxPollAttempts = 30
	SettleDelay     = 500 * time.Millisecond
	CloseDelay      = 500 * time.Millisecond

	// statusEvery is how many polls pass between progress updates.
	statusEvery = 10
)

// Progress messages shown by the UI.
const (
	msgPreparing  = "Preparing to shut down..."
	msgStopping   = "Shutting down local node..."
	msgWaitingFmt = "Waiting for node to shut down (%d seconds)..."
	msgForceStop  = "Force stopping node..."
	msgStopFailed = "Failed to stop node: %v"
	msgClosingApp = "Closing application..."
)

// Supervisor is the subset of node.Supervisor the close sequence drives.
type Supervisor interface {
	IsRunning() bool
	Shutdown() error
	ForceKill() error
	ExitNotify() <-chan struct{}
}

// Logger defines the logging interface for the coordinator.
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

// Result summarises one close sequence.
type Result struct {
	SessionID   string        `json:"session_id,omitempty"`
	FastPath    bool          `json:"fast_path"`
	InProgress  bool          `json:"in_progress,omitempty"`
	Attempts    int           `json:"attempts"`
	ForceKilled bool          `json:"force_killed"`
	Elapsed     time.Duration `json:"elapsed"`
	Err         error         `json:"-"`
}

// Coordinator runs the close sequence. One sequence runs at a time.
type Coordinator struct {
	supervisor Supervisor
	emitter    Emitter
	logger     Logger

	pollInterval time.Duration
	maxAttempts  int
	settleDelay  time.Duration
	closeDelay   time.Duration

	active atomic.Bool
}

// New creates a Coordinator using the fixed close policy.
func New(supervisor Supervisor, emitter Emitter) *Coordinator {
	if emitter == nil {
		emitter = Multi()
	}
	return &Coordinator{
		supervisor:   supervisor,
		emitter:      emitter,
		logger:       noopLogger{},
		pollInterval: PollInterval,
		maxAttempts:  MaxPollAttempts,
		settleDelay:  SettleDelay,
		closeDelay:   CloseDelay,
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// NodeRunning reports whether a close request would have to wait for the node.
func (c *Coordinator) NodeRunning() bool {
	return c.supervisor.IsRunning()
}

// Run executes the close sequence and calls release exactly once when the
// window may close. It always releases, even when stopping the node fails.
// A call made while another sequence is in progress returns immediately
// with InProgress set and does not call release.
func (c *Coordinator) Run(release func()) Result {
	if !c.active.CompareAndSwap(false, true) {
		return Result{InProgress: true}
	}
	defer c.active.Store(false)

	return c.run(uuid.NewString(), release)
}

// RunAsync starts the close sequence in a new goroutine and returns its
// session ID. done, if non-nil, receives the Result after release has been
// called. ok is false, and nothing starts, while another sequence runs.
func (c *Coordinator) RunAsync(release func(), done func(Result)) (sessionID string, ok bool) {
	if !c.active.CompareAndSwap(false, true) {
		return "", false
	}

	sessionID = uuid.NewString()
	go func() {
		res := c.run(sessionID, release)
		c.active.Store(false)
		if done != nil {
			done(res)
		}
	}()
	return sessionID, true
}

func (c *Coordinator) run(sessionID string, release func()) Result {
	start := time.Now()
	res := Result{SessionID: sessionID}
	defer func() {
		if release != nil {
			release()
		}
	}()

	if !c.supervisor.IsRunning() {
		res.FastPath = true
		c.logger.Debug("close requested, node not running", "session", res.SessionID)
		return res
	}

	c.logger.Info("close requested while node running", "session", res.SessionID)
	c.emit(res.SessionID, EventTriggerShutdown, msgPreparing)
	c.emit(res.SessionID, EventShutdownStatus, msgStopping)

	if err := c.supervisor.Shutdown(); err != nil {
		// Polling still runs; a failed request ends in a forced kill.
		c.logger.Warn("node shutdown request failed", "session", res.SessionID, "error", err)
		res.Err = err
		c.emit(res.SessionID, EventShutdownStatus, fmt.Sprintf(msgStopFailed, err))
	}

	if !c.poll(&res) {
		c.logger.Warn("node did not stop in time, forcing",
			"session", res.SessionID,
			"attempts", res.Attempts,
		)
		c.emit(res.SessionID, EventShutdownStatus, msgForceStop)
		if err := c.supervisor.ForceKill(); err != nil {
			c.logger.Error("force kill failed", "session", res.SessionID, "error", err)
			res.Err = err
			c.emit(res.SessionID, EventShutdownStatus, fmt.Sprintf(msgStopFailed, err))
		} else {
			res.ForceKilled = true
		}
		time.Sleep(c.settleDelay)
	}

	c.emit(res.SessionID, EventShutdownStatus, msgClosingApp)
	time.Sleep(c.closeDelay)

	res.Elapsed = time.Since(start)
	c.logger.Info("close sequence finished",
		"session", res.SessionID,
		"attempts", res.Attempts,
		"force_killed", res.ForceKilled,
		"elapsed", res.Elapsed,
	)
	return res
}

// poll checks liveness up to maxAttempts times and reports whether the node
// stopped. Each check takes the supervisor lock on its own.
func (c *Coordinator) poll(res *Result) bool {
	exited := c.supervisor.ExitNotify()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ticker.C:
		case <-exited:
			exited = nil
		}

		res.Attempts = attempt
		if !c.supervisor.IsRunning() {
			return true
		}
		if attempt%statusEvery == 0 {
			c.emit(res.SessionID, EventShutdownStatus, fmt.Sprintf(msgWaitingFmt, attempt/statusEvery))
		}
	}
	return false
}

// emit sends an event, logging instead of failing on error.
func (c *Coordinator) emit(session, event, message string) {
	if err := c.emitter.Emit(event, message); err != nil {
		c.logger.Warn("emitting shutdown event failed",
			"session", session,
			"event", event,
			"error", err,
		)
	}
}
