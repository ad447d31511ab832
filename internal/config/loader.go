// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader resolves the runtime configuration with precedence
// ENV > file > defaults and validates the result.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a configuration loader. configPath may be empty, in
// which case configuration comes from defaults and environment only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load resolves the configuration: defaults, then the YAML file (strict
// parsing), then RELAYD_* environment variables, then validation.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields cause an error to catch misspelled keys early.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeFileConfig applies file values over cfg. Absent fields keep the
// previous value; malformed duration strings are an error.
func mergeFileConfig(cfg *Config, file *FileConfig) error {
	applyString(&cfg.Listen, file.Listen)
	applyString(&cfg.APIToken, file.APIToken)
	applyString(&cfg.FFmpegPath, file.FFmpegPath)
	if err := applyDuration(&cfg.ProbeTimeout, "probe_timeout", file.ProbeTimeout); err != nil {
		return err
	}
	if err := applyDuration(&cfg.ShutdownTimeout, "shutdown_timeout", file.ShutdownTimeout); err != nil {
		return err
	}
	if file.RateLimitRPS > 0 {
		cfg.RateLimitRPS = file.RateLimitRPS
	}

	applyString(&cfg.Dashboard.URL, file.Dashboard.URL)
	applyString(&cfg.Dashboard.Token, file.Dashboard.Token)

	applyString(&cfg.MediaServer.Kind, file.MediaServer.Kind)
	applyString(&cfg.MediaServer.APIURL, file.MediaServer.APIURL)
	applyString(&cfg.MediaServer.StatURL, file.MediaServer.StatURL)

	applyString(&cfg.Input.Path, file.Input.Path)
	applyString(&cfg.Input.RTMPURL, file.Input.RTMPURL)
	applyString(&cfg.Input.SRTURL, file.Input.SRTURL)
	if err := applyDuration(&cfg.Input.StatusCacheTTL, "input.status_cache_ttl", file.Input.StatusCacheTTL); err != nil {
		return err
	}

	applyString(&cfg.Cache.Backend, file.Cache.Backend)
	applyString(&cfg.Cache.RedisAddr, file.Cache.RedisAddr)

	applyString(&cfg.Log.Level, file.Log.Level)
	applyString(&cfg.Log.Format, file.Log.Format)

	if file.OTel.Enabled != nil {
		cfg.OTel.Enabled = *file.OTel.Enabled
	}
	applyString(&cfg.OTel.Endpoint, file.OTel.Endpoint)
	applyString(&cfg.OTel.Exporter, file.OTel.Exporter)
	if file.OTel.SampleRatio != nil {
		cfg.OTel.SampleRatio = *file.OTel.SampleRatio
	}

	return nil
}

func applyString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func applyDuration(dst *time.Duration, field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	*dst = d
	return nil
}

// mergeEnvConfig merges RELAYD_* environment variables into cfg.
// The current value doubles as the default so absent keys change nothing.
func (l *Loader) mergeEnvConfig(cfg *Config) {
	cfg.Listen = l.envString("RELAYD_LISTEN", cfg.Listen)
	cfg.APIToken = l.envString("RELAYD_API_TOKEN", cfg.APIToken)
	cfg.FFmpegPath = l.envString("RELAYD_FFMPEG_PATH", cfg.FFmpegPath)
	cfg.ProbeTimeout = l.envDuration("RELAYD_PROBE_TIMEOUT", cfg.ProbeTimeout)
	cfg.ShutdownTimeout = l.envDuration("RELAYD_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.RateLimitRPS = l.envInt("RELAYD_RATE_LIMIT_RPS", cfg.RateLimitRPS)

	cfg.Dashboard.URL = l.envString("RELAYD_DASHBOARD_URL", cfg.Dashboard.URL)
	cfg.Dashboard.Token = l.envString("RELAYD_DASHBOARD_TOKEN", cfg.Dashboard.Token)

	cfg.MediaServer.Kind = l.envString("RELAYD_MEDIA_SERVER_KIND", cfg.MediaServer.Kind)
	cfg.MediaServer.APIURL = l.envString("RELAYD_MEDIA_SERVER_API_URL", cfg.MediaServer.APIURL)
	cfg.MediaServer.StatURL = l.envString("RELAYD_MEDIA_SERVER_STAT_URL", cfg.MediaServer.StatURL)

	cfg.Input.Path = l.envString("RELAYD_INPUT_PATH", cfg.Input.Path)
	cfg.Input.RTMPURL = l.envString("RELAYD_INPUT_RTMP_URL", cfg.Input.RTMPURL)
	cfg.Input.SRTURL = l.envString("RELAYD_INPUT_SRT_URL", cfg.Input.SRTURL)
	cfg.Input.StatusCacheTTL = l.envDuration("RELAYD_STATUS_CACHE_TTL", cfg.Input.StatusCacheTTL)

	cfg.Cache.Backend = l.envString("RELAYD_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisAddr = l.envString("RELAYD_REDIS_ADDR", cfg.Cache.RedisAddr)

	cfg.Log.Level = l.envString("RELAYD_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = l.envString("RELAYD_LOG_FORMAT", cfg.Log.Format)

	cfg.OTel.Enabled = l.envBool("RELAYD_OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.Endpoint = l.envString("RELAYD_OTEL_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Exporter = l.envString("RELAYD_OTEL_EXPORTER", cfg.OTel.Exporter)
	cfg.OTel.SampleRatio = l.envFloat("RELAYD_OTEL_SAMPLE_RATIO", cfg.OTel.SampleRatio)
}
