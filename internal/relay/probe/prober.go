// SPDX-License-Identifier: MIT

// Package probe determines once per process whether the NVENC hardware
// encoder is usable on this host.
package probe

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/metrics"
)

// DefaultTimeout bounds the probe so a wedged driver cannot hang the
// first relay start.
const DefaultTimeout = 10 * time.Second

// probeArgs performs a minimal synthetic encode: a single generated frame
// through h264_nvenc, discarded.
var probeArgs = []string{
	"-hide_banner",
	"-f", "lavfi",
	"-i", "nullsrc=s=256x144:d=0.1",
	"-frames:v", "1",
	"-c:v", "h264_nvenc",
	"-f", "null", "-",
}

// failurePhrases mark an encode that "succeeded" by exit code but ran on
// a host without a usable driver or device.
var failurePhrases = []string{
	"Unknown encoder",
	"Cannot load libnvidia-encode",
	"No capable devices found",
	"Cannot init CUDA",
	"Driver does not support",
}

// Prober memoizes the hardware determination for the process lifetime.
// The zero determination is "not probed yet"; construction performs no I/O.
type Prober struct {
	binPath string
	timeout time.Duration

	// runProbe is the exec step, injectable for tests.
	runProbe func(ctx context.Context) ([]byte, error)

	once      sync.Once
	probed    atomic.Bool
	available bool
}

// New returns an unprobed Prober for the given worker binary.
func New(binPath string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Prober{binPath: binPath, timeout: timeout}
	p.runProbe = p.execProbe
	return p
}

// Available runs the probe on first call and returns the memoized
// determination afterwards. A failed probe is never fatal: callers fall
// back to the software encoder.
func (p *Prober) Available(ctx context.Context) bool {
	p.once.Do(func() {
		logger := log.WithComponentFromContext(ctx, "probe")

		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		started := time.Now()
		out, err := p.runProbe(probeCtx)
		p.available = classify(out, err)
		p.probed.Store(true)

		metrics.SetHWAccelAvailable(p.available)
		logger.Info().
			Bool("available", p.available).
			Dur("duration", time.Since(started)).
			Str(log.FieldEncoder, "h264_nvenc").
			Msg("hardware encoder probe completed")
		if err != nil {
			logger.Debug().Err(err).Msg("probe command failed")
		}
	})
	return p.available
}

// Cached returns the determination without triggering a probe. probed is
// false until the first Available call has completed.
func (p *Prober) Cached() (available, probed bool) {
	if !p.probed.Load() {
		return false, false
	}
	return p.available, true
}

func (p *Prober) execProbe(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.binPath, probeArgs...)
	return cmd.CombinedOutput()
}

// classify decides the determination from the probe's combined output and
// exit error. Success requires a zero exit code and none of the known
// failure phrases in the diagnostics.
func classify(output []byte, runErr error) bool {
	if runErr != nil {
		return false
	}
	for _, phrase := range failurePhrases {
		if bytes.Contains(output, []byte(phrase)) {
			return false
		}
	}
	return true
}
