// Package sidecar locates, launches and supervises the infer_worker child
// process and turns its newline-delimited JSON stdout into processing events.
package sidecar

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultWaitDelay    = 2 * time.Second
)

// CommandFactory builds the child command. Tests replace it to re-exec the
// test binary as a fake worker.
type CommandFactory func(ctx context.Context, name string, args ...string) *exec.Cmd

// Request is one processing run.
type Request struct {
	Executable string
	Files      []string
	ModelPath  string
	ModelName  string
	Config     InferenceConfig
}

// Supervisor runs one child per Run call; children are never reused.
type Supervisor struct {
	pub          *events.Publisher
	log          logger.Logger
	newCommand   CommandFactory
	pollInterval time.Duration
	waitDelay    time.Duration

	// logMu serializes processing-log emission between stdout and stderr handling.
	logMu sync.Mutex
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithCommandFactory replaces exec.CommandContext.
func WithCommandFactory(f CommandFactory) Option {
	return func(s *Supervisor) { s.newCommand = f }
}

// WithPollInterval sets how often the cancel flag is polled while the child is silent.
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.pollInterval = d }
}

// NewSupervisor creates a supervisor publishing through pub.
func NewSupervisor(pub *events.Publisher, log logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		pub:          pub,
		log:          log,
		newCommand:   exec.CommandContext,
		pollInterval: defaultPollInterval,
		waitDelay:    defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run launches the sidecar and relays its output until it exits or flag is
// set. Once the child has started, Run always emits exactly one
// processing-done and returns its payload. An error is returned only when the
// child could not be started; no processing-done is emitted in that case.
func (s *Supervisor) Run(ctx context.Context, req Request, flag *cancel.Flag) (events.DonePayload, error) {
	log := s.log.WithContext(ctx)

	args, err := BuildArgs(req.Files, req.ModelPath, req.ModelName, req.Config)
	if err != nil {
		return events.DonePayload{}, launchError(err, req.Executable)
	}

	s.emitLog(fmt.Sprintf("Starting processing of %d files...", len(req.Files)))
	s.emitLog("Sidecar: " + req.Executable)

	cmd := s.newCommand(ctx, req.Executable, args...)
	cmd.WaitDelay = s.waitDelay
	stderr := newLineWriter(s.emitLog)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return events.DonePayload{}, launchError(err, req.Executable)
	}

	if err := cmd.Start(); err != nil {
		return events.DonePayload{}, launchError(err, req.Executable)
	}
	log.Info("sidecar started",
		logger.Int("pid", cmd.Process.Pid),
		logger.Int("files", len(req.Files)),
		logger.String("model", req.ModelName))
	started := time.Now()

	var killOnce sync.Once
	kill := func() {
		killOnce.Do(func() { _ = cmd.Process.Kill() })
	}

	stop := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		s.watch(flag, stop, kill)
		return nil
	})

	var (
		last      events.ProgressPayload
		terminal  *events.DonePayload
		cancelled bool
		progress  int
	)
	reader := bufio.NewReader(stdout)
	for {
		if flag.IsSet() || ctx.Err() != nil {
			kill()
			cancelled = true
			break
		}
		line, readErr := reader.ReadBytes('\n')
		if msg, ok := ParseLine(line); ok {
			if msg.Done != nil {
				terminal = msg.Done
				break
			}
			last = *msg.Progress
			progress++
			s.pub.Progress(last)
		}
		if readErr != nil {
			if readErr != io.EOF {
				log.Warn("sidecar stdout read failed", logger.Error(readErr))
			}
			// A kill from the watcher surfaces here as EOF.
			cancelled = flag.IsSet() || ctx.Err() != nil
			break
		}
	}

	close(stop)
	_ = g.Wait()
	waitErr := cmd.Wait()
	stderr.Flush()

	if cancelled {
		s.emitLog("Cancelled.")
	} else if waitErr != nil {
		s.emitLog(fmt.Sprintf("infer_worker exited abnormally: %v", waitErr))
	}

	done := events.DonePayload{
		Done:       true,
		Successful: last.Successful,
		Failed:     last.Failed,
		Total:      last.Total,
	}
	if terminal != nil {
		done = *terminal
	}

	log.Info("sidecar finished",
		logger.Int("progress_events", progress),
		logger.Bool("terminal_received", terminal != nil),
		logger.Bool("cancelled", cancelled),
		logger.Duration("elapsed", time.Since(started)),
		logger.Any("exit_error", waitErr))

	s.emitLog(fmt.Sprintf("Done. %d succeeded, %d failed.", done.Successful, done.Failed))
	s.pub.Done(done)
	return done, nil
}

// watch kills the child as soon as flag is set, even while stdout is silent.
func (s *Supervisor) watch(flag *cancel.Flag, stop <-chan struct{}, kill func()) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if flag.IsSet() {
				kill()
				return
			}
		}
	}
}

func (s *Supervisor) emitLog(line string) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	s.pub.Log(line)
}

// lineWriter splits stderr into lines and forwards the non-blank ones.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.forward(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush forwards a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.forward(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) forward(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	w.emit(line)
}
