// SPDX-License-Identifier: MIT

package plan

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfork/relayd/internal/relay/model"
)

const testInput = "rtmp://127.0.0.1:1935/live/stream"

func TestBuildPassthroughHasNoEncodeDirectives(t *testing.T) {
	dests := []model.Destination{
		{ID: "d1", Endpoint: "rtmp://a.rtmp.youtube.com/live2", StreamKey: "abcd-1234"},
		{ID: "d2", Endpoint: "rtmp://a.rtmp.youtube.com/live2", StreamKey: "abcd-1234",
			Encoding: &model.EncodingConfig{Passthrough: true}},
	}

	for _, dest := range dests {
		p, err := Build(dest, testInput, true)
		require.NoError(t, err)
		assert.True(t, p.Passthrough)
		assert.False(t, p.Hardware)

		joined := " " + strings.Join(p.Args, " ") + " "
		assert.Contains(t, joined, " -c copy ")
		for _, directive := range []string{"-c:v", "-c:a", "-b:v", "-b:a", "-preset", "-g", "-vf", "-x264-params", "-rc-lookahead"} {
			assert.NotContains(t, joined, " "+directive+" ", "passthrough must not re-encode")
		}
	}
}

func TestBuildGOPIsKeyframeTimesFPS(t *testing.T) {
	tests := []struct {
		keyframeSec int
		fps         int
		wantGOP     string
	}{
		{2, 30, "60"},
		{1, 60, "60"},
		{4, 25, "100"},
		{0, 0, "60"}, // defaults: 2s x 30fps
	}

	for _, tt := range tests {
		dest := model.Destination{
			ID:       "d1",
			Endpoint: "rtmp://live.example.com/app",
			Encoding: &model.EncodingConfig{KeyframeSec: tt.keyframeSec, FPS: tt.fps},
		}
		p, err := Build(dest, testInput, false)
		require.NoError(t, err)
		assert.Equal(t, tt.wantGOP, argAfter(t, p.Args, "-g"))
	}
}

func TestBuildHardwarePresetTranslation(t *testing.T) {
	tests := []struct {
		preset string
		want   string
	}{
		{"ultrafast", "p1"},
		{"superfast", "p2"},
		{"veryfast", "p3"},
		{"faster", "p4"},
		{"fast", "p5"},
		{"medium", "p6"},
		{"slow", "p7"},
		{"warp9", "p4"}, // unknown falls back to the mid-level preset
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			dest := model.Destination{
				ID:       "d1",
				Endpoint: "rtmp://live.example.com/app",
				Encoding: &model.EncodingConfig{Preset: tt.preset},
			}
			p, err := Build(dest, testInput, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, argAfter(t, p.Args, "-preset"))
		})
	}
}

func TestBuildSoftwarePresetPassesThrough(t *testing.T) {
	dest := model.Destination{
		ID:       "d1",
		Endpoint: "rtmp://live.example.com/app",
		Encoding: &model.EncodingConfig{Preset: "slow"},
	}
	p, err := Build(dest, testInput, false)
	require.NoError(t, err)
	assert.Equal(t, "slow", argAfter(t, p.Args, "-preset"))
}

func TestBuildLookaheadBounds(t *testing.T) {
	dest := model.Destination{
		ID:       "d1",
		Endpoint: "rtmp://live.example.com/app",
		Encoding: &model.EncodingConfig{LookaheadFrames: 64},
	}

	hw, err := Build(dest, testInput, true)
	require.NoError(t, err)
	assert.Equal(t, "32", argAfter(t, hw.Args, "-rc-lookahead"))

	sw, err := Build(dest, testInput, false)
	require.NoError(t, err)
	assert.Equal(t, "rc-lookahead=60", argAfter(t, sw.Args, "-x264-params"))
}

func TestBuildPushTargetAppendsKey(t *testing.T) {
	tests := []struct {
		endpoint string
		key      string
		want     string
	}{
		{"rtmp://a.rtmp.youtube.com/live2", "abcd-1234", "rtmp://a.rtmp.youtube.com/live2/abcd-1234"},
		{"rtmp://a.rtmp.youtube.com/live2/", "abcd-1234", "rtmp://a.rtmp.youtube.com/live2/abcd-1234"},
		{"rtmps://live-api.example.com:443/rtmp", "key", "rtmps://live-api.example.com:443/rtmp/key"},
		{"rtmp://ingest.example.com/app", "", "rtmp://ingest.example.com/app"},
	}

	for _, tt := range tests {
		p, err := Build(model.Destination{ID: "d", Endpoint: tt.endpoint, StreamKey: tt.key}, testInput, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.Output)
		assert.Equal(t, tt.want, p.Args[len(p.Args)-1], "target must be the final argument")
		assert.Equal(t, "flv", argAfter(t, p.Args, "-f"))
	}
}

func TestBuildSRTTargetDefaults(t *testing.T) {
	p, err := Build(model.Destination{
		ID:        "d1",
		Endpoint:  "srt://ingest.example.com:9710",
		StreamKey: "session-1",
	}, testInput, false)
	require.NoError(t, err)

	// Query keys are encoded in sorted order.
	assert.Equal(t, "srt://ingest.example.com:9710?latency=200000&mode=caller&streamid=session-1", p.Output)
	assert.Equal(t, "mpegts", argAfter(t, p.Args, "-f"))
}

func TestBuildSRTTargetExplicitParams(t *testing.T) {
	p, err := Build(model.Destination{
		ID:        "d1",
		Endpoint:  "srt://ingest.example.com:9710",
		StreamKey: "session-1",
		SRT: &model.SRTParams{
			LatencyMS:  350,
			Passphrase: "supersecret",
			Mode:       "rendezvous",
		},
	}, testInput, false)
	require.NoError(t, err)

	assert.Equal(t,
		"srt://ingest.example.com:9710?latency=350000&mode=rendezvous&passphrase=supersecret&streamid=session-1",
		p.Output)
}

func TestBuildRejectsUnsupportedScheme(t *testing.T) {
	_, err := Build(model.Destination{ID: "d1", Endpoint: "http://example.com/live"}, testInput, false)
	require.Error(t, err)

	_, err = Build(model.Destination{ID: "d1", Endpoint: "rtmp://host/app"}, "", false)
	require.Error(t, err)
}

func TestBuildHardwareArgs(t *testing.T) {
	dest := model.Destination{
		ID:        "d1",
		Endpoint:  "srt://ingest.example.com:9710",
		StreamKey: "sess",
		Encoding: &model.EncodingConfig{
			VideoBitrateK: 6000,
			MaxBitrateK:   6600,
			BufferSizeK:   12000,
			AudioBitrateK: 192,
			Preset:        "fast",
			FPS:           60,
			KeyframeSec:   2,
			Width:         1280,
			Height:        720,
		},
	}

	p, err := Build(dest, testInput, true)
	require.NoError(t, err)
	require.True(t, p.Hardware)

	want := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-stats",
		"-i", testInput,
		"-c:v", "h264_nvenc",
		"-preset", "p5",
		"-tune", "ll",
		"-profile:v", "high",
		"-b:v", "6000k",
		"-maxrate", "6600k",
		"-bufsize", "12000k",
		"-r", "60",
		"-g", "120",
		"-rc-lookahead", "8",
		"-vf", "scale_cuda=1280:720",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "48000",
		"-f", "mpegts",
		"srt://ingest.example.com:9710?latency=200000&mode=caller&streamid=sess",
	}
	if diff := cmp.Diff(want, p.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSoftwareCBRArgs(t *testing.T) {
	dest := model.Destination{
		ID:        "d2",
		Endpoint:  "rtmp://live.example.com/app",
		StreamKey: "key",
		Encoding: &model.EncodingConfig{
			CBR:             true,
			LookaheadFrames: 12,
		},
	}

	p, err := Build(dest, testInput, false)
	require.NoError(t, err)
	require.False(t, p.Hardware)

	want := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-stats",
		"-i", testInput,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "high",
		"-b:v", "4500k",
		"-maxrate", "4950k",
		"-bufsize", "9000k",
		"-r", "30",
		"-g", "60",
		"-bf", "2",
		"-x264-params", "nal-hrd=cbr:rc-lookahead=12",
		"-c:a", "aac",
		"-b:a", "160k",
		"-ar", "48000",
		"-f", "flv",
		"rtmp://live.example.com/app/key",
	}
	if diff := cmp.Diff(want, p.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

// argAfter returns the argument following the given flag.
func argAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}
