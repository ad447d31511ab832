// SPDX-License-Identifier: MIT

// Package input detects whether a live input stream is being published to
// the local media server and which protocol delivered it.
package input

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamfork/relayd/internal/cache"
	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/metrics"
	"github.com/streamfork/relayd/internal/platform/httpx"
	"github.com/streamfork/relayd/internal/relay/model"
)

// Kind selects the media-server status interface to poll.
type Kind string

const (
	// KindMediaMTX polls the MediaMTX control API (JSON).
	KindMediaMTX Kind = "mediamtx"
	// KindNginxRTMP scans the nginx-rtmp stat page (XML, matched textually).
	KindNginxRTMP Kind = "nginx-rtmp"
)

const (
	cacheKey    = "input:status"
	pollTimeout = 5 * time.Second
	maxStatBody = 1 << 20

	// MediaMTX source-connection types that map onto a relay protocol.
	// Any other type still counts as available, with no protocol.
	sourceTypeRTMP = "rtmpConn"
	sourceTypeSRT  = "srtConn"
)

// Config holds the detector's polling targets.
type Config struct {
	Kind     Kind
	APIURL   string // MediaMTX control API base, e.g. http://127.0.0.1:9997
	StatURL  string // nginx-rtmp stat page, e.g. http://127.0.0.1:8080/stat
	Path     string // input path (MediaMTX) or application name (nginx-rtmp)
	CacheTTL time.Duration
}

// pollResult is the memoized outcome of one status poll.
type pollResult struct {
	Available bool           `json:"available"`
	Protocol  model.Protocol `json:"protocol"`
}

// Detector polls the media server and tracks input continuity across polls.
// The continuity timestamp marks the start of the current availability run:
// it is set when availability transitions from false to true, kept while the
// input stays available, and cleared the moment a poll reports unavailable.
type Detector struct {
	cfg    Config
	http   *http.Client
	cache  cache.Cache
	logger zerolog.Logger

	mu    sync.Mutex
	state model.InputState

	now func() time.Time
}

// New creates a Detector. Poll results are memoized in c for cfg.CacheTTL so
// status handlers and readiness probes can call Detect freely.
func New(cfg Config, c cache.Cache, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		http:   httpx.NewClient(pollTimeout),
		cache:  c,
		logger: logger.With().Str(log.FieldComponent, "input").Logger(),
		now:    time.Now,
	}
}

// Detect polls the media server (or reuses a cached poll) and returns the
// current input state. Poll failures report unavailable and clear the
// continuity timestamp. Detect never spawns processes.
func (d *Detector) Detect(ctx context.Context) model.InputState {
	res, err := d.poll(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("input poll failed")
		metrics.IncInputPoll("error")
		return d.observe(pollResult{})
	}

	if res.Available {
		metrics.IncInputPoll("available")
	} else {
		metrics.IncInputPoll("unavailable")
	}
	return d.observe(res)
}

// Invalidate drops the memoized poll result so the next Detect hits the
// media server again.
func (d *Detector) Invalidate() {
	d.cache.Delete(cacheKey)
}

// observe applies one poll outcome to the continuity state.
func (d *Detector) observe(res pollResult) model.InputState {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case !res.Available:
		if d.state.Available {
			d.logger.Info().Msg("input became unavailable")
		}
		d.state = model.InputState{Available: false, Protocol: model.ProtocolNone}
	case !d.state.Available:
		t := d.now()
		d.state = model.InputState{Available: true, Protocol: res.Protocol, Since: &t}
		d.logger.Info().
			Str(log.FieldProtocol, string(res.Protocol)).
			Time("since", t).
			Msg("input became available")
	default:
		// Still available: keep the timestamp of the current run.
		d.state.Protocol = res.Protocol
	}

	metrics.SetInputAvailable(d.state.Available)
	return d.state
}

// poll returns the memoized poll result or queries the media server.
// Only successful polls are cached; failures always retry.
func (d *Detector) poll(ctx context.Context) (pollResult, error) {
	if raw, ok := d.cache.Get(cacheKey); ok {
		var res pollResult
		if err := json.Unmarshal(raw, &res); err == nil {
			return res, nil
		}
	}

	res, err := d.query(ctx)
	if err != nil {
		return pollResult{}, err
	}

	if raw, err := json.Marshal(res); err == nil {
		d.cache.Set(cacheKey, raw, d.cfg.CacheTTL)
	}
	return res, nil
}

func (d *Detector) query(ctx context.Context) (pollResult, error) {
	if d.cfg.Kind == KindNginxRTMP {
		return d.queryNginxStat(ctx)
	}
	return d.queryMediaMTX(ctx)
}

// queryMediaMTX asks the MediaMTX control API for the active path list and
// looks for the configured path.
func (d *Detector) queryMediaMTX(ctx context.Context) (pollResult, error) {
	u := strings.TrimRight(d.cfg.APIURL, "/") + "/v3/paths/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return pollResult{}, fmt.Errorf("mediamtx request: %w", err)
	}

	res, err := d.http.Do(req)
	if err != nil {
		return pollResult{}, fmt.Errorf("mediamtx paths/list: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return pollResult{}, fmt.Errorf("mediamtx paths/list: unexpected status %d", res.StatusCode)
	}

	var payload struct {
		Items []struct {
			Name   string `json:"name"`
			Ready  bool   `json:"ready"`
			Source *struct {
				Type string `json:"type"`
			} `json:"source"`
		} `json:"items"`
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, maxStatBody)).Decode(&payload); err != nil {
		return pollResult{}, fmt.Errorf("mediamtx paths/list: decode: %w", err)
	}

	for _, item := range payload.Items {
		if item.Name != d.cfg.Path || !item.Ready {
			continue
		}
		out := pollResult{Available: true, Protocol: model.ProtocolNone}
		if item.Source != nil {
			switch item.Source.Type {
			case sourceTypeRTMP:
				out.Protocol = model.ProtocolRTMP
			case sourceTypeSRT:
				out.Protocol = model.ProtocolSRT
			}
		}
		return out, nil
	}
	return pollResult{}, nil
}

// queryNginxStat fetches the nginx-rtmp stat page and scans it textually for
// a publishing stream under the configured application. nginx-rtmp ingests
// RTMP only, so an available input is always protocol rtmp.
func (d *Detector) queryNginxStat(ctx context.Context) (pollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.StatURL, nil)
	if err != nil {
		return pollResult{}, fmt.Errorf("nginx stat request: %w", err)
	}

	res, err := d.http.Do(req)
	if err != nil {
		return pollResult{}, fmt.Errorf("nginx stat: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return pollResult{}, fmt.Errorf("nginx stat: unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxStatBody))
	if err != nil {
		return pollResult{}, fmt.Errorf("nginx stat: read: %w", err)
	}

	page := string(body)
	idx := strings.Index(page, "<name>"+d.cfg.Path+"</name>")
	if idx < 0 || !strings.Contains(page[idx:], "<publishing/>") {
		return pollResult{}, nil
	}
	return pollResult{Available: true, Protocol: model.ProtocolRTMP}, nil
}
