// SPDX-License-Identifier: MIT

// Package worker supervises the per-destination FFmpeg relay processes.
package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/metrics"
	"github.com/streamfork/relayd/internal/procgroup"
	"github.com/streamfork/relayd/internal/relay/model"
	"github.com/streamfork/relayd/internal/relay/plan"
	"github.com/streamfork/relayd/internal/relay/telemetry"
)

var (
	// ErrAlreadyRunning is returned by Start when the destination already
	// has a live worker.
	ErrAlreadyRunning = errors.New("worker already running")
	// ErrNotRunning is returned by Stop when no worker exists for the
	// destination.
	ErrNotRunning = errors.New("worker not running")
)

// reactions binds the event handlers registered at spawn time: stderr data
// and process exit. Spawn failures are reported synchronously by Start.
type reactions struct {
	line func(string)
	exit func(error)
}

// Supervisor owns the set of running workers, one per destination. State
// machine per destination: absent -> running -> absent, where the running
// state ends on explicit stop or external exit.
type Supervisor struct {
	ffmpegPath string
	collector  *telemetry.Collector
	logger     zerolog.Logger
	onEmpty    func()

	mu      sync.Mutex
	workers map[string]*Handle
	gen     uint64
}

// NewSupervisor creates a Supervisor spawning ffmpegPath. onEmpty, if
// non-nil, fires after the last remaining worker exits for any reason.
func NewSupervisor(ffmpegPath string, collector *telemetry.Collector, onEmpty func()) *Supervisor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Supervisor{
		ffmpegPath: ffmpegPath,
		collector:  collector,
		logger:     log.WithComponent("worker"),
		onEmpty:    onEmpty,
		workers:    make(map[string]*Handle),
	}
}

// Start spawns a worker for the destination. The process is detached from
// ctx: workers outlive the request that started them.
func (s *Supervisor) Start(ctx context.Context, dest model.Destination, p plan.Plan) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workers[dest.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, dest.ID)
	}

	cmd := exec.Command(s.ffmpegPath, p.Args...) // #nosec G204 -- argument vector comes from the plan builder
	procgroup.Set(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe for %s: %w", dest.ID, err)
	}

	logger := s.logger.With().Str(log.FieldDestination, dest.ID).Logger()

	if err := cmd.Start(); err != nil {
		logger.Error().Err(err).Msg("ffmpeg spawn failed")
		return nil, fmt.Errorf("spawn worker for %s: %w", dest.ID, err)
	}

	s.gen++
	now := time.Now()
	h := &Handle{
		DestinationID: dest.ID,
		PID:           cmd.Process.Pid,
		StartedAt:     now,
		Plan:          p,
		cmd:           cmd,
		generation:    s.gen,
		done:          make(chan struct{}),
	}
	s.workers[dest.ID] = h

	s.collector.Register(dest.ID, now)
	metrics.IncWorkerStart(dest.ID)
	metrics.SetWorkersActive(len(s.workers))

	re := reactions{
		line: func(line string) {
			s.collector.Ingest(dest.ID, line)
			if line != "" && !telemetry.IsProgressLine(line) {
				logger.Debug().Str("stderr", line).Msg("ffmpeg output")
			}
		},
		exit: func(waitErr error) {
			s.reap(h, waitErr)
		},
	}

	scanDone := make(chan struct{})
	go consumeStderr(stderr, re.line, scanDone)
	go func() {
		// Drain stderr fully before reaping, per the exec.Cmd pipe contract.
		<-scanDone
		re.exit(cmd.Wait())
		close(h.done)
	}()

	logger.Info().
		Int(log.FieldPID, h.PID).
		Bool("passthrough", p.Passthrough).
		Bool("hardware", p.Hardware).
		Msg("worker started")

	return h, nil
}

// Stop sends SIGTERM to the worker's process group and returns without
// waiting. There is no SIGKILL escalation: a worker that ignores SIGTERM
// keeps running and keeps its handle until it exits.
func (s *Supervisor) Stop(id string) error {
	s.mu.Lock()
	h, ok := s.workers[id]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	h.stopped.Store(true)
	s.logger.Debug().Str(log.FieldDestination, id).Int(log.FieldPID, h.PID).Msg("sending SIGTERM to worker")
	if err := procgroup.Kill(h.cmd, syscall.SIGTERM); err != nil {
		metrics.IncProcSignal("SIGTERM", "error")
		return fmt.Errorf("signal worker %s: %w", id, err)
	}
	metrics.IncProcSignal("SIGTERM", "sent")
	return nil
}

// StopAll terminates every worker in parallel and waits until each has
// exited and been reaped, bounded by ctx.
func (s *Supervisor) StopAll(ctx context.Context) {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.workers))
	for _, h := range s.workers {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	if len(handles) == 0 {
		return
	}
	s.logger.Info().Int("workers", len(handles)).Msg("stopping all workers")

	var wg sync.WaitGroup
	for _, h := range handles {
		h.stopped.Store(true)
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			if err := procgroup.Terminate(ctx, h.cmd, h.done); err != nil {
				s.logger.Warn().Err(err).
					Str(log.FieldDestination, h.DestinationID).
					Int(log.FieldPID, h.PID).
					Msg("worker did not exit before deadline")
			}
		}(h)
	}
	wg.Wait()
}

// Running lists the active workers sorted by destination ID.
func (s *Supervisor) Running() []HandleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HandleInfo, 0, len(s.workers))
	for _, h := range s.workers {
		out = append(out, h.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
	return out
}

// Count returns the number of active workers.
func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// reap removes the handle after exit, marks the telemetry series ended and
// fires onEmpty when the last worker is gone. The generation check keeps a
// stale exit from removing a successor started for the same destination.
func (s *Supervisor) reap(h *Handle, waitErr error) {
	code := 0
	if waitErr != nil {
		code = 1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	reason := "clean"
	switch {
	case h.stopped.Load():
		reason = "stopped"
	case code != 0:
		reason = "error"
	}

	s.mu.Lock()
	cur, ok := s.workers[h.DestinationID]
	if !ok || cur.generation != h.generation {
		s.mu.Unlock()
		return
	}
	delete(s.workers, h.DestinationID)
	remaining := len(s.workers)
	onEmpty := s.onEmpty
	s.mu.Unlock()

	s.collector.MarkEnded(h.DestinationID, time.Now())
	metrics.IncWorkerExit(h.DestinationID, reason)
	metrics.SetWorkersActive(remaining)

	logger := s.logger.With().
		Str(log.FieldDestination, h.DestinationID).
		Int(log.FieldPID, h.PID).
		Logger()
	if reason == "stopped" {
		logger.Info().Msg("worker stopped")
	} else {
		logger.Warn().Int("exit_code", code).Str("reason", reason).Msg("worker exited unexpectedly")
	}

	if remaining == 0 && onEmpty != nil {
		onEmpty()
	}
}

// consumeStderr feeds each stderr line to onLine and closes done at EOF.
// FFmpeg rewrites its -stats progress line with carriage returns, so both
// \r and \n terminate a line.
func consumeStderr(r io.Reader, onLine func(string), done chan<- struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r)
	scanner.Split(scanStderrLines)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
}

func scanStderrLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && advance < len(data) && data[advance] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
