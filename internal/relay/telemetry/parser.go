// SPDX-License-Identifier: MIT

package telemetry

import (
	"regexp"
	"strconv"
	"time"
)

// ffmpeg -stats progress lines look like:
//
//	frame=  247 fps= 30 q=23.0 size=    1024KiB time=00:00:08.23 bitrate=1019.1kbits/s speed=1.01x
//
// Fields are extracted independently; any subset may be present.
var (
	bitrateRe = regexp.MustCompile(`bitrate=\s*([\d.]+)\s*kbits/s`)
	fpsRe     = regexp.MustCompile(`\bfps=\s*([\d.]+)`)
	speedRe   = regexp.MustCompile(`speed=\s*([\d.]+)x`)
	frameRe   = regexp.MustCompile(`frame=\s*(\d+)`)
	timeRe    = regexp.MustCompile(`\btime=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// parseStatsLine extracts progress fields from one diagnostic line.
// It returns false when the line carries none of them.
func parseStatsLine(line string, at time.Time) (Sample, bool) {
	s := Sample{Timestamp: at}
	found := false

	if m := bitrateRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.BitrateKbps = &v
			found = true
		}
	}
	if m := fpsRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.FPS = &v
			found = true
		}
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.Speed = &v
			found = true
		}
	}
	if m := frameRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			s.Frame = &v
			found = true
		}
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		h, err1 := strconv.ParseFloat(m[1], 64)
		mi, err2 := strconv.ParseFloat(m[2], 64)
		sec, err3 := strconv.ParseFloat(m[3], 64)
		if err1 == nil && err2 == nil && err3 == nil {
			v := h*3600 + mi*60 + sec
			s.OffsetSec = &v
			found = true
		}
	}

	return s, found
}

// IsProgressLine reports whether a diagnostic line is periodic progress
// output rather than a message worth logging.
func IsProgressLine(line string) bool {
	return frameRe.MatchString(line) || bitrateRe.MatchString(line)
}
