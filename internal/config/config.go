// SPDX-License-Identifier: MIT

// Package config loads, validates and hot-reloads the relayd runtime
// configuration. Precedence: defaults, then the optional YAML file, then
// RELAYD_* environment variables.
package config

import "time"

// Media server kinds understood by the input detector.
const (
	MediaServerMediaMTX  = "mediamtx"
	MediaServerNginxRTMP = "nginx-rtmp"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Trace exporters.
const (
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Listen          string
	APIToken        string
	FFmpegPath      string
	ProbeTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	Version         string

	Dashboard   DashboardConfig
	MediaServer MediaServerConfig
	Input       InputConfig
	Cache       CacheConfig
	Log         LogConfig
	OTel        OTelConfig
}

// DashboardConfig points the controller at the destination source.
type DashboardConfig struct {
	URL   string
	Token string
}

// MediaServerConfig selects and addresses the ingest media server.
type MediaServerConfig struct {
	Kind    string // mediamtx | nginx-rtmp
	APIURL  string // mediamtx control API base
	StatURL string // nginx-rtmp stat page
}

// InputConfig describes the watched ingest path and the worker input URLs.
type InputConfig struct {
	Path           string
	RTMPURL        string
	SRTURL         string
	StatusCacheTTL time.Duration
}

// CacheConfig selects the cache backend for input poll memoization.
type CacheConfig struct {
	Backend   string // memory | redis
	RedisAddr string
}

// LogConfig controls log verbosity and output encoding.
type LogConfig struct {
	Level  string // trace | debug | info | warn | error
	Format string // json | console
}

// OTelConfig controls the trace provider.
type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	Exporter    string // otlp-grpc | otlp-http
	SampleRatio float64
}

// Default returns the built-in defaults. Required secrets (API token,
// dashboard URL and token) have no default and must come from file or env.
func Default() Config {
	return Config{
		Listen:          ":8090",
		FFmpegPath:      "ffmpeg",
		ProbeTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    20,
		MediaServer: MediaServerConfig{
			Kind:    MediaServerMediaMTX,
			APIURL:  "http://127.0.0.1:9997",
			StatURL: "http://127.0.0.1:8080/stat",
		},
		Input: InputConfig{
			Path:           "live",
			RTMPURL:        "rtmp://127.0.0.1:1935/live/stream",
			SRTURL:         "srt://127.0.0.1:8890?streamid=read:live",
			StatusCacheTTL: 2 * time.Second,
		},
		Cache: CacheConfig{
			Backend:   CacheBackendMemory,
			RedisAddr: "127.0.0.1:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		OTel: OTelConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Exporter:    ExporterOTLPGRPC,
			SampleRatio: 1.0,
		},
	}
}

// FileConfig is the YAML file schema. Durations are Go duration strings
// ("10s"); absent fields keep the previous value.
type FileConfig struct {
	Listen          string `yaml:"listen,omitempty"`
	APIToken        string `yaml:"api_token,omitempty"`
	FFmpegPath      string `yaml:"ffmpeg_path,omitempty"`
	ProbeTimeout    string `yaml:"probe_timeout,omitempty"`
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`
	RateLimitRPS    int    `yaml:"rate_limit_rps,omitempty"`

	Dashboard   DashboardFileConfig   `yaml:"dashboard,omitempty"`
	MediaServer MediaServerFileConfig `yaml:"media_server,omitempty"`
	Input       InputFileConfig       `yaml:"input,omitempty"`
	Cache       CacheFileConfig       `yaml:"cache,omitempty"`
	Log         LogFileConfig         `yaml:"log,omitempty"`
	OTel        OTelFileConfig        `yaml:"otel,omitempty"`
}

// DashboardFileConfig holds dashboard settings in the YAML file.
type DashboardFileConfig struct {
	URL   string `yaml:"url,omitempty"`
	Token string `yaml:"token,omitempty"`
}

// MediaServerFileConfig holds media server settings in the YAML file.
type MediaServerFileConfig struct {
	Kind    string `yaml:"kind,omitempty"`
	APIURL  string `yaml:"api_url,omitempty"`
	StatURL string `yaml:"stat_url,omitempty"`
}

// InputFileConfig holds input settings in the YAML file.
type InputFileConfig struct {
	Path           string `yaml:"path,omitempty"`
	RTMPURL        string `yaml:"rtmp_url,omitempty"`
	SRTURL         string `yaml:"srt_url,omitempty"`
	StatusCacheTTL string `yaml:"status_cache_ttl,omitempty"`
}

// CacheFileConfig holds cache settings in the YAML file.
type CacheFileConfig struct {
	Backend   string `yaml:"backend,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

// LogFileConfig holds log settings in the YAML file.
type LogFileConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// OTelFileConfig holds tracing settings in the YAML file.
type OTelFileConfig struct {
	Enabled     *bool    `yaml:"enabled,omitempty"`
	Endpoint    string   `yaml:"endpoint,omitempty"`
	Exporter    string   `yaml:"exporter,omitempty"`
	SampleRatio *float64 `yaml:"sample_ratio,omitempty"`
}
