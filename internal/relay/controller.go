// SPDX-License-Identifier: MIT

// Package relay coordinates the relay engine: it fetches destinations,
// detects the input, probes encode capability, builds per-destination
// FFmpeg plans and drives the worker supervisor.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/relay/model"
	"github.com/streamfork/relayd/internal/relay/plan"
	"github.com/streamfork/relayd/internal/relay/telemetry"
	"github.com/streamfork/relayd/internal/relay/worker"
)

// restartGrace is the pause between stopping a worker and starting its
// successor. Heuristic only: nothing confirms the old process has released
// its output connection before the new one spawns.
const restartGrace = 500 * time.Millisecond

// DestinationSource provides the relay destination list.
type DestinationSource interface {
	Destinations(ctx context.Context) ([]model.Destination, error)
}

// InputSource reports the live input state.
type InputSource interface {
	Detect(ctx context.Context) model.InputState
	Invalidate()
}

// CapabilitySource reports hardware encode capability. Available may block
// for the probe on first use; Cached never probes.
type CapabilitySource interface {
	Available(ctx context.Context) bool
	Cached() (available, probed bool)
}

// Config holds the controller's static settings.
type Config struct {
	FFmpegPath   string
	InputRTMPURL string
	InputSRTURL  string
}

// Controller composes the relay engine. Mutating operations are serialized
// by opMu; stateMu guards the small relay-wide flags so that worker exit
// callbacks never contend with a long-running operation.
type Controller struct {
	cfg        Config
	source     DestinationSource
	detector   InputSource
	capability CapabilitySource
	collector  *telemetry.Collector
	supervisor *worker.Supervisor
	logger     zerolog.Logger

	opMu sync.Mutex

	stateMu   sync.Mutex
	startedAt *time.Time
	lastDests map[string]model.Destination
}

// NewController wires the relay engine. The telemetry collector and worker
// supervisor are owned by the controller; no external code touches worker
// handles directly.
func NewController(cfg Config, source DestinationSource, detector InputSource, capability CapabilitySource) *Controller {
	c := &Controller{
		cfg:        cfg,
		source:     source,
		detector:   detector,
		capability: capability,
		collector:  telemetry.NewCollector(),
		logger:     log.WithComponent("relay"),
		lastDests:  make(map[string]model.Destination),
	}
	c.supervisor = worker.NewSupervisor(cfg.FFmpegPath, c.collector, c.onAllWorkersGone)
	return c
}

// Telemetry exposes the collector for read and clear access.
func (c *Controller) Telemetry() *telemetry.Collector { return c.collector }

// StartAll starts a worker for every enabled destination. It fails fast
// when the destination source is unreachable or yields zero enabled
// destinations; per-destination start failures land in the Report and do
// not abort the others.
func (c *Controller) StartAll(ctx context.Context) (Report, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startAllLocked(ctx)
}

func (c *Controller) startAllLocked(ctx context.Context) (Report, error) {
	dests, err := c.source.Destinations(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrDashboardUnavailable, err)
	}
	c.rememberDestinations(dests)

	enabled := make([]model.Destination, 0, len(dests))
	var skipped []string
	for _, d := range dests {
		if d.Enabled {
			enabled = append(enabled, d)
		} else {
			skipped = append(skipped, d.ID)
		}
	}
	if len(enabled) == 0 {
		return Report{Skipped: skipped}, ErrNoEnabledDestinations
	}

	// Relay-wide start: previous series are gone, every destination begins
	// a fresh one.
	c.collector.ClearAll()

	state := c.detector.Detect(ctx)
	inputURL := c.inputURL(state)
	hardware := c.capability.Available(ctx)

	report := Report{Started: []string{}, Hardware: hardware, Input: state, Skipped: skipped}
	for _, d := range enabled {
		p, err := plan.Build(d, inputURL, hardware)
		if err != nil {
			c.logger.Error().Err(err).Str(log.FieldDestination, d.ID).Msg("plan build failed")
			report.fail(d.ID, err)
			continue
		}
		if _, err := c.supervisor.Start(ctx, d, p); err != nil {
			report.fail(d.ID, err)
			continue
		}
		report.Started = append(report.Started, d.ID)
	}

	if len(report.Started) > 0 {
		now := time.Now()
		c.stateMu.Lock()
		if c.startedAt == nil {
			c.startedAt = &now
		}
		c.stateMu.Unlock()
	}

	c.logger.Info().
		Int("started", len(report.Started)).
		Int("failed", len(report.Failed)).
		Int("skipped", len(report.Skipped)).
		Bool("hardware", hardware).
		Str(log.FieldProtocol, string(state.Protocol)).
		Msg("relay start completed")
	return report, nil
}

// StopAll terminates every worker, waits for their exit bounded by ctx and
// clears the relay-wide state. Returns the number of workers stopped.
func (c *Controller) StopAll(ctx context.Context) int {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stopAllLocked(ctx)
}

func (c *Controller) stopAllLocked(ctx context.Context) int {
	n := c.supervisor.Count()
	c.supervisor.StopAll(ctx)

	c.stateMu.Lock()
	c.startedAt = nil
	c.stateMu.Unlock()

	if n > 0 {
		c.logger.Info().Int("stopped", n).Msg("relay stopped")
	}
	return n
}

// StartOne starts the named destination from a fresh fetch. Unknown ids
// yield ErrUnknownDestination; an existing handle yields
// worker.ErrAlreadyRunning. A disabled destination can be started this way:
// naming it explicitly overrides the enabled flag.
func (c *Controller) StartOne(ctx context.Context, id string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startOneLocked(ctx, id)
}

func (c *Controller) startOneLocked(ctx context.Context, id string) error {
	dests, err := c.source.Destinations(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDashboardUnavailable, err)
	}
	c.rememberDestinations(dests)

	var dest model.Destination
	found := false
	for _, d := range dests {
		if d.ID == id {
			dest, found = d, true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, id)
	}

	state := c.detector.Detect(ctx)
	hardware := c.capability.Available(ctx)

	p, err := plan.Build(dest, c.inputURL(state), hardware)
	if err != nil {
		return fmt.Errorf("build plan for %s: %w", id, err)
	}
	if _, err := c.supervisor.Start(ctx, dest, p); err != nil {
		return err
	}

	now := time.Now()
	c.stateMu.Lock()
	if c.startedAt == nil {
		c.startedAt = &now
	}
	c.stateMu.Unlock()
	return nil
}

// StopOne stops the named destination's worker. An absent worker yields
// worker.ErrNotRunning, the "not found" outcome.
func (c *Controller) StopOne(id string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.supervisor.Stop(id)
}

// RestartOne stops the destination if running, waits the grace period and
// starts it again from a fresh fetch. After completion exactly one handle
// exists, with a new PID. A destination that was not running is simply
// started.
func (c *Controller) RestartOne(ctx context.Context, id string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch err := c.supervisor.Stop(id); {
	case err == nil:
		if err := sleepCtx(ctx, restartGrace); err != nil {
			return err
		}
	case errors.Is(err, worker.ErrNotRunning):
		// Nothing to stop, no grace needed.
	default:
		return err
	}
	return c.startOneLocked(ctx, id)
}

// RefreshAll stops everything, waits the grace period and starts again
// with a freshly fetched destination list and input state, so dashboard
// edits take effect.
func (c *Controller) RefreshAll(ctx context.Context) (Report, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopAllLocked(ctx)
	if err := sleepCtx(ctx, restartGrace); err != nil {
		return Report{}, err
	}
	c.detector.Invalidate()
	return c.startAllLocked(ctx)
}

// Status reports the aggregate relay state. It never probes capability;
// hardware status reflects the memoized probe only.
func (c *Controller) Status(ctx context.Context) Status {
	input := c.detector.Detect(ctx)
	hwAvailable, hwProbed := c.capability.Cached()

	running := c.supervisor.Running()
	byID := make(map[string]worker.HandleInfo, len(running))
	for _, h := range running {
		byID[h.DestinationID] = h
	}

	summaries := c.collector.Summaries()
	sumByID := make(map[string]telemetry.Summary, len(summaries))
	for _, s := range summaries {
		sumByID[s.DestinationID] = s
	}

	c.stateMu.Lock()
	startedAt := c.startedAt
	dests := make(map[string]model.Destination, len(c.lastDests))
	for id, d := range c.lastDests {
		dests[id] = d
	}
	c.stateMu.Unlock()

	ids := make(map[string]struct{})
	for id := range dests {
		ids[id] = struct{}{}
	}
	for id := range byID {
		ids[id] = struct{}{}
	}
	for id := range sumByID {
		ids[id] = struct{}{}
	}

	entries := make([]DestinationStatus, 0, len(ids))
	for id := range ids {
		entry := DestinationStatus{ID: id}
		if d, ok := dests[id]; ok {
			entry.Name = d.Name
			entry.Enabled = d.Enabled
			entry.Known = true
		}
		if h, ok := byID[id]; ok {
			entry.Running = true
			entry.PID = h.PID
			t := h.StartedAt
			entry.StartedAt = &t
			entry.Passthrough = h.Passthrough
			entry.Hardware = h.Hardware
		}
		if s, ok := sumByID[id]; ok {
			sum := s
			entry.Telemetry = &sum
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	// Active is derived from the live worker set so a crash of the last
	// worker can never leave a stale flag behind.
	active := len(running) > 0
	if !active {
		startedAt = nil
	}

	return Status{
		Active:       active,
		StartedAt:    startedAt,
		Input:        input,
		Hardware:     HardwareStatus{Available: hwAvailable, Probed: hwProbed},
		Destinations: entries,
	}
}

// inputURL picks the worker input URL for the detected protocol. Unknown
// or unavailable input falls back to the RTMP read URL: starting a relay
// before the feed arrives is allowed, FFmpeg will connect once it appears.
func (c *Controller) inputURL(state model.InputState) string {
	if state.Protocol == model.ProtocolSRT {
		return c.cfg.InputSRTURL
	}
	return c.cfg.InputRTMPURL
}

func (c *Controller) rememberDestinations(dests []model.Destination) {
	m := make(map[string]model.Destination, len(dests))
	for _, d := range dests {
		m[d.ID] = d
	}
	c.stateMu.Lock()
	c.lastDests = m
	c.stateMu.Unlock()
}

// onAllWorkersGone fires from the supervisor after the last worker exits
// for any reason.
func (c *Controller) onAllWorkersGone() {
	c.stateMu.Lock()
	c.startedAt = nil
	c.stateMu.Unlock()
	c.logger.Info().Msg("all workers exited, relay inactive")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
