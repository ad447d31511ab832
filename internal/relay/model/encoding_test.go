// SPDX-License-Identifier: MIT

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedFillsAbsentFields(t *testing.T) {
	got := EncodingConfig{}.Normalized()

	assert.Equal(t, DefaultVideoBitrateK, got.VideoBitrateK)
	assert.Equal(t, DefaultMaxBitrateK, got.MaxBitrateK)
	assert.Equal(t, DefaultBufferSizeK, got.BufferSizeK)
	assert.Equal(t, DefaultAudioBitrateK, got.AudioBitrateK)
	assert.Equal(t, DefaultPreset, got.Preset)
	assert.Equal(t, DefaultFPS, got.FPS)
	assert.Equal(t, DefaultKeyframeSec, got.KeyframeSec)
	assert.Equal(t, DefaultLookaheadFrames, got.LookaheadFrames)
	assert.Equal(t, DefaultProfile, got.Profile)
	assert.Zero(t, got.Width)
	assert.Zero(t, got.Height)
}

func TestNormalizedKeepsExplicitValues(t *testing.T) {
	in := EncodingConfig{
		VideoBitrateK:   6000,
		MaxBitrateK:     6600,
		BufferSizeK:     12000,
		AudioBitrateK:   192,
		Preset:          "slow",
		FPS:             60,
		KeyframeSec:     1,
		LookaheadFrames: 20,
		Profile:         "main",
		Width:           1280,
		Height:          720,
	}
	assert.Equal(t, in, in.Normalized())
}

func TestIsPassthrough(t *testing.T) {
	var nilCfg *EncodingConfig
	assert.True(t, nilCfg.IsPassthrough())
	assert.True(t, (&EncodingConfig{Passthrough: true}).IsPassthrough())
	assert.False(t, (&EncodingConfig{}).IsPassthrough())
}
