// SPDX-License-Identifier: MIT

package plan

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	pnet "github.com/streamfork/relayd/internal/platform/net"
	"github.com/streamfork/relayd/internal/relay/model"
)

const (
	// Look-ahead caps: NVENC rejects values above 32, x264 accepts more.
	maxLookaheadHW = 32
	maxLookaheadSW = 60

	// Defaults for pull/connect-style targets without explicit parameters.
	defaultSRTLatencyMS = 200
	defaultSRTMode      = "caller"
)

// Build constructs the worker argument plan for one destination.
// useHardware selects the encoder path; the decision is made by the
// caller, never here.
func Build(dest model.Destination, inputURL string, useHardware bool) (Plan, error) {
	if inputURL == "" {
		return Plan{}, fmt.Errorf("missing input URL")
	}

	u, err := pnet.ValidateEndpoint(dest.Endpoint)
	if err != nil {
		return Plan{}, fmt.Errorf("destination %s: %w", dest.ID, err)
	}

	push := u.Scheme != "srt"
	target := buildTarget(u, dest, push)

	p := Plan{
		DestinationID: dest.ID,
		Output:        target,
		Passthrough:   dest.Encoding.IsPassthrough(),
		Hardware:      !dest.Encoding.IsPassthrough() && useHardware,
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-stats",
		"-i", inputURL,
	}

	if p.Passthrough {
		args = append(args, "-c", "copy")
	} else {
		cfg := dest.Encoding.Normalized()
		args = append(args, videoArgs(cfg, p.Hardware)...)
		args = append(args, audioArgs(cfg)...)
	}

	format := "flv"
	if !push {
		format = "mpegts"
	}
	args = append(args, "-f", format, target)

	p.Args = args
	return p, nil
}

// buildTarget constructs the final output URL. Push-style targets append
// the stream key as a path segment; pull/connect-style targets encode the
// session parameters into the query string.
func buildTarget(u *url.URL, dest model.Destination, push bool) string {
	if push {
		base := strings.TrimRight(u.String(), "/")
		if dest.StreamKey == "" {
			return base
		}
		return base + "/" + dest.StreamKey
	}

	q := u.Query()
	if dest.StreamKey != "" {
		q.Set("streamid", dest.StreamKey)
	}
	if dest.SRT == nil {
		q.Set("latency", strconv.Itoa(defaultSRTLatencyMS*1000))
		q.Set("mode", defaultSRTMode)
	} else {
		if dest.SRT.LatencyMS > 0 {
			// SRT takes latency in microseconds.
			q.Set("latency", strconv.Itoa(dest.SRT.LatencyMS*1000))
		}
		if dest.SRT.Passphrase != "" {
			q.Set("passphrase", dest.SRT.Passphrase)
		}
		if dest.SRT.Mode != "" {
			q.Set("mode", dest.SRT.Mode)
		}
	}
	out := *u
	out.RawQuery = q.Encode()
	return out.String()
}

func videoArgs(cfg model.EncodingConfig, hardware bool) []string {
	gop := cfg.KeyframeSec * cfg.FPS

	lookahead := cfg.LookaheadFrames
	maxLookahead := maxLookaheadSW
	if hardware {
		maxLookahead = maxLookaheadHW
	}
	if lookahead > maxLookahead {
		lookahead = maxLookahead
	}

	preset := translatePreset(cfg.Preset, hardware)

	if hardware {
		args := []string{
			"-c:v", "h264_nvenc",
			"-preset", preset,
			"-tune", "ll",
			"-profile:v", cfg.Profile,
			"-b:v", kbps(cfg.VideoBitrateK),
			"-maxrate", kbps(cfg.MaxBitrateK),
			"-bufsize", kbps(cfg.BufferSizeK),
			"-r", strconv.Itoa(cfg.FPS),
			"-g", strconv.Itoa(gop),
			"-rc-lookahead", strconv.Itoa(lookahead),
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			args = append(args, "-vf", fmt.Sprintf("scale_cuda=%d:%d", cfg.Width, cfg.Height))
		}
		return args
	}

	args := []string{
		"-c:v", "libx264",
		"-preset", preset,
		"-profile:v", cfg.Profile,
		"-b:v", kbps(cfg.VideoBitrateK),
		"-maxrate", kbps(cfg.MaxBitrateK),
		"-bufsize", kbps(cfg.BufferSizeK),
		"-r", strconv.Itoa(cfg.FPS),
		"-g", strconv.Itoa(gop),
		"-bf", "2",
	}
	if cfg.CBR {
		args = append(args, "-x264-params", fmt.Sprintf("nal-hrd=cbr:rc-lookahead=%d", lookahead))
	} else if lookahead > 0 {
		args = append(args, "-x264-params", fmt.Sprintf("rc-lookahead=%d", lookahead))
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", cfg.Width, cfg.Height))
	}
	return args
}

func audioArgs(cfg model.EncodingConfig) []string {
	return []string{
		"-c:a", "aac",
		"-b:a", kbps(cfg.AudioBitrateK),
		"-ar", "48000",
	}
}

func kbps(v int) string {
	return strconv.Itoa(v) + "k"
}
