// Package engine owns the connection to the compliance engine: the child
// process lifecycle (or a reference to an externally managed engine) and the
// HTTP client used to talk to it.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// MaxRestarts is the restart budget of a spawned engine.
const MaxRestarts = 3

// Readiness polling defaults: 30 attempts every 200ms.
const (
	DefaultReadyAttempts = 30
	DefaultReadyInterval = 200 * time.Millisecond
)

// reapTimeout bounds how long Shutdown waits for the output pumps to drain.
const reapTimeout = 5 * time.Second

var (
	ErrEntrypointMissing = errors.New("engine entrypoint not found")
	ErrExternal          = errors.New("engine is managed externally")
	ErrRestartBudget     = errors.New("engine restart budget exhausted")
)

// Status is the lifecycle state of the engine process.
type Status int

const (
	StatusNotStarted Status = iota
	StatusStarting
	StatusRunning
	StatusStopped
	StatusExternal
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not started"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusExternal:
		return "external"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a spawned engine.
type Options struct {
	// Runtime is the interpreter, e.g. "node". Empty runs Entry directly.
	Runtime string
	Entry   string
	Dir     string
	Env     []string
	Logger  *zap.Logger
}

// Supervisor owns the engine child process. All methods are safe for
// concurrent use.
type Supervisor struct {
	mu       sync.Mutex
	opts     Options
	log      *zap.Logger
	status   Status
	restarts int
	baseURL  string

	cmd  *exec.Cmd
	done chan struct{} // closed once the current process has been reaped
}

// NewSupervisor returns a supervisor that will spawn the engine on Start.
func NewSupervisor(opts Options) *Supervisor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{opts: opts, log: log, status: StatusNotStarted}
}

// NewExternal returns a supervisor for an engine managed elsewhere. It is
// never spawned, restarted or killed.
func NewExternal(baseURL string, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{log: log, status: StatusExternal, baseURL: baseURL}
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Restarts returns how many restarts have been attempted.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// BaseURL returns the engine address, empty before the first Start.
func (s *Supervisor) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}

// Start spawns the engine on a fresh loopback port.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Supervisor) startLocked() error {
	switch s.status {
	case StatusExternal:
		return ErrExternal
	case StatusFailed:
		return ErrRestartBudget
	}
	if _, err := os.Stat(s.opts.Entry); err != nil {
		return fmt.Errorf("%w: %s", ErrEntrypointMissing, s.opts.Entry)
	}
	port, err := freePort()
	if err != nil {
		return fmt.Errorf("reserve engine port: %w", err)
	}

	var cmd *exec.Cmd
	if s.opts.Runtime == "" {
		cmd = exec.Command(s.opts.Entry)
	} else {
		cmd = exec.Command(s.opts.Runtime, s.opts.Entry)
	}
	cmd.Dir = s.opts.Dir
	cmd.Env = append(append(os.Environ(), s.opts.Env...), "PORT="+strconv.Itoa(port))
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("engine stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn engine: %w", err)
	}

	pid := cmd.Process.Pid
	log := s.log.With(zap.Int("pid", pid), zap.Int("port", port))
	log.Info("engine process spawned", zap.String("entry", s.opts.Entry))

	var g errgroup.Group
	g.Go(func() error { return pumpLines(stdout, log, zap.InfoLevel) })
	g.Go(func() error { return pumpLines(stderr, log, zap.WarnLevel) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := g.Wait(); err != nil {
			log.Debug("engine output pump ended", zap.Error(err))
		}
		err := cmd.Wait()
		log.Info("engine process exited", zap.Error(err))
	}()

	s.cmd = cmd
	s.done = done
	s.baseURL = "http://127.0.0.1:" + strconv.Itoa(port)
	s.status = StatusStarting
	return nil
}

// WaitUntilReady polls GET /status until the engine reports ready. On the
// first ready response the status moves to Running. It returns false once
// maxAttempts are exhausted, the process dies, or ctx ends.
func (s *Supervisor) WaitUntilReady(ctx context.Context, client *Client, maxAttempts int, interval time.Duration) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		st, err := client.Status(ctx)
		if err == nil && st.Ready {
			s.mu.Lock()
			if s.status == StatusStarting {
				s.status = StatusRunning
			}
			s.mu.Unlock()
			return true
		}
		if s.exited() {
			s.mu.Lock()
			if s.status == StatusStarting || s.status == StatusRunning {
				s.status = StatusStopped
			}
			s.mu.Unlock()
			return false
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	s.log.Warn("engine not ready", zap.Int("attempts", maxAttempts))
	return false
}

// exited reports whether an owned process has been reaped.
func (s *Supervisor) exited() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// IsAlive reports whether the engine is usable. External engines are always
// considered alive and failed ones never are; otherwise the process is
// checked and the status moves to Stopped when it has exited.
func (s *Supervisor) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusExternal:
		return true
	case StatusFailed, StatusNotStarted, StatusStopped:
		return false
	}
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		s.status = StatusStopped
		return false
	default:
		return true
	}
}

// TryRestart kills the current process and starts a new one. Once the
// restart counter reaches MaxRestarts a failed restart is terminal and every
// later call returns ErrRestartBudget without counting.
func (s *Supervisor) TryRestart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.status == StatusExternal:
		return ErrExternal
	case s.status == StatusFailed:
		return ErrRestartBudget
	case s.restarts >= MaxRestarts:
		s.status = StatusFailed
		s.log.Error("engine restart budget exhausted", zap.Int("restarts", s.restarts))
		return ErrRestartBudget
	}

	s.restarts++
	s.log.Warn("restarting engine", zap.Int("attempt", s.restarts))
	s.killLocked()
	s.status = StatusStopped

	if err := s.startLocked(); err != nil {
		if s.restarts >= MaxRestarts {
			s.status = StatusFailed
			return fmt.Errorf("%w: %w", ErrRestartBudget, err)
		}
		return err
	}
	return nil
}

// Shutdown kills and reaps the owned process. It is idempotent and leaves an
// external engine untouched.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusExternal {
		return
	}
	s.killLocked()
	if s.status == StatusStarting || s.status == StatusRunning {
		s.status = StatusStopped
	}
}

func (s *Supervisor) killLocked() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	pid := s.cmd.Process.Pid
	s.log.Info("killing engine process", zap.Int("pid", pid))
	killProcessGroup(s.cmd)
	select {
	case <-s.done:
	case <-time.After(reapTimeout):
		s.log.Warn("engine process not reaped in time", zap.Int("pid", pid))
	}
	s.cmd = nil
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// pumpLines forwards every line of r to the logger.
func pumpLines(r io.Reader, log *zap.Logger, level zapcore.Level) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if ce := log.Check(level, "engine output"); ce != nil {
			ce.Write(zap.String("line", sc.Text()))
		}
	}
	return sc.Err()
}
