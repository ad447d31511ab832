// SPDX-License-Identifier: MIT

package model

// EncodingConfig describes the per-destination transcode parameters.
// A nil config or Passthrough=true relays the input without re-encoding.
type EncodingConfig struct {
	Passthrough     bool   `json:"passthrough,omitempty"`
	VideoBitrateK   int    `json:"videoBitrateK,omitempty"`
	MaxBitrateK     int    `json:"maxBitrateK,omitempty"`
	BufferSizeK     int    `json:"bufferSizeK,omitempty"`
	AudioBitrateK   int    `json:"audioBitrateK,omitempty"`
	Preset          string `json:"preset,omitempty"`
	FPS             int    `json:"fps,omitempty"`
	KeyframeSec     int    `json:"keyframeSec,omitempty"`
	CBR             bool   `json:"cbr,omitempty"`
	LookaheadFrames int    `json:"lookahead,omitempty"`
	Profile         string `json:"profile,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// Encode parameter defaults, applied field-wise when a value is absent.
const (
	DefaultVideoBitrateK   = 4500
	DefaultMaxBitrateK     = 4950
	DefaultBufferSizeK     = 9000
	DefaultAudioBitrateK   = 160
	DefaultPreset          = "veryfast"
	DefaultFPS             = 30
	DefaultKeyframeSec     = 2
	DefaultLookaheadFrames = 8
	DefaultProfile         = "high"
)

// Normalized returns a copy with every absent numeric or enum field
// replaced by its default. The receiver is not modified.
func (c EncodingConfig) Normalized() EncodingConfig {
	if c.VideoBitrateK <= 0 {
		c.VideoBitrateK = DefaultVideoBitrateK
	}
	if c.MaxBitrateK <= 0 {
		c.MaxBitrateK = DefaultMaxBitrateK
	}
	if c.BufferSizeK <= 0 {
		c.BufferSizeK = DefaultBufferSizeK
	}
	if c.AudioBitrateK <= 0 {
		c.AudioBitrateK = DefaultAudioBitrateK
	}
	if c.Preset == "" {
		c.Preset = DefaultPreset
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.KeyframeSec <= 0 {
		c.KeyframeSec = DefaultKeyframeSec
	}
	if c.LookaheadFrames <= 0 {
		c.LookaheadFrames = DefaultLookaheadFrames
	}
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}
	return c
}

// IsPassthrough reports whether the destination should be relayed without
// re-encoding. A nil config implies passthrough.
func (c *EncodingConfig) IsPassthrough() bool {
	return c == nil || c.Passthrough
}
