package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"
)

// outputDrainTimeout bounds how long the reaper waits for buffered output
// after the child exits. A grandchild that inherited the pipe can keep it
// open indefinitely.
var outputDrainTimeout = 2 * time.Second

// Config describes the child process to spawn.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// OnLine receives every output line, stdout and stderr merged,
	// without the trailing newline. Called from a single goroutine.
	OnLine func(line string)

	// OnExit is called once after the child has been reaped and its output
	// drained, before Done is closed. err is the result of the wait.
	OnExit func(h *Handle, err error)
}

// Logger defines the logging interface for process handles.
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

// Handle is a running (or reaped) child process.
type Handle struct {
	config    Config
	logger    Logger
	cmd       *exec.Cmd
	startTime time.Time

	stopRequested atomic.Bool

	// exitErr is written once by the reaper before done is closed.
	exitErr error
	done    chan struct{}
}

// Spawn starts the child described by cfg. The returned handle is already
// running; output capture and reaping happen on background goroutines.
func Spawn(cfg Config, logger Logger) (*Handle, error) {
	if cfg.Binary == "" {
		return nil, errors.New("process: binary is required")
	}
	if logger == nil {
		logger = noopLogger{}
	}

	cmd := exec.Command(cfg.Binary, cfg.Args...) //nolint:gosec // binary comes from validated daemon config
	cmd.SysProcAttr = sysProcAttr()
	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	// One pipe for both streams keeps the child's write order.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}
	// The child holds its own copy of the write end.
	pw.Close()

	h := &Handle{
		config:    cfg,
		logger:    logger,
		cmd:       cmd,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}

	drained := make(chan struct{})
	go h.captureOutput(pr, drained)
	go h.reap(pr, drained)

	logger.Info("process started",
		"name", cfg.Name,
		"pid", cmd.Process.Pid,
	)

	return h, nil
}

// captureOutput delivers each line to OnLine until the pipe closes.
func (h *Handle) captureOutput(r io.Reader, drained chan<- struct{}) {
	defer close(drained)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" && h.config.OnLine != nil {
			h.config.OnLine(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				h.logger.Debug("output stream closed",
					"name", h.config.Name,
					"error", err,
				)
			}
			return
		}
	}
}

// reap waits for the child, lets the output drain, then reports the exit.
func (h *Handle) reap(pr *os.File, drained <-chan struct{}) {
	err := h.cmd.Wait()

	select {
	case <-drained:
	case <-time.After(outputDrainTimeout):
		h.logger.Warn("output still open after exit, closing pipe", "name", h.config.Name)
	}
	pr.Close()
	// No line may reach OnLine once OnExit has run.
	<-drained

	h.exitErr = err
	if err != nil && !h.stopRequested.Load() {
		h.logger.Warn("process exited unexpectedly",
			"name", h.config.Name,
			"pid", h.PID(),
			"error", err,
		)
	} else {
		h.logger.Info("process exited",
			"name", h.config.Name,
			"pid", h.PID(),
			"stop_requested", h.stopRequested.Load(),
		)
	}

	if h.config.OnExit != nil {
		h.config.OnExit(h, err)
	}
	close(h.done)
}

// Terminate asks the process group to exit gracefully and returns
// immediately. A group that is already gone is not an error.
func (h *Handle) Terminate() error {
	h.stopRequested.Store(true)
	if h.Exited() {
		return nil
	}
	h.logger.Info("terminating process", "name", h.config.Name, "pid", h.PID())
	if err := terminate(h.cmd.Process); err != nil {
		return fmt.Errorf("terminating %s: %w", h.config.Name, err)
	}
	return nil
}

// Kill forcibly stops the process group and returns immediately.
// Safe to call repeatedly and after the process has exited.
func (h *Handle) Kill() error {
	h.stopRequested.Store(true)
	if h.Exited() {
		return nil
	}
	h.logger.Warn("killing process", "name", h.config.Name, "pid", h.PID())
	if err := kill(h.cmd.Process); err != nil {
		return fmt.Errorf("killing %s: %w", h.config.Name, err)
	}
	return nil
}

// Done is closed once the child has been reaped and OnExit has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether the child has been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the wait result. Only meaningful after Done is closed.
func (h *Handle) ExitErr() error {
	if !h.Exited() {
		return nil
	}
	return h.exitErr
}

// StopRequested reports whether Terminate or Kill has been called.
func (h *Handle) StopRequested() bool {
	return h.stopRequested.Load()
}

// PID returns the child's process ID.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// StartTime returns when the child was spawned.
func (h *Handle) StartTime() time.Time {
	return h.startTime
}

// Name returns the configured process name.
func (h *Handle) Name() string {
	return h.config.Name
}
