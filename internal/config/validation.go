// SPDX-License-Identifier: MIT

package config

import (
	"github.com/streamfork/relayd/internal/validate"
)

// Validate checks the resolved configuration and reports every problem at
// once so operators fix a broken deployment in one pass.
func Validate(cfg Config) error {
	v := validate.New()

	v.ListenAddr("listen", cfg.Listen)
	v.NotEmpty("api_token", cfg.APIToken)
	v.NotEmpty("ffmpeg_path", cfg.FFmpegPath)
	v.PositiveDuration("probe_timeout", cfg.ProbeTimeout)
	v.PositiveDuration("shutdown_timeout", cfg.ShutdownTimeout)
	v.Range("rate_limit_rps", cfg.RateLimitRPS, 1, 1000)

	v.URL("dashboard.url", cfg.Dashboard.URL, []string{"http", "https"})
	v.NotEmpty("dashboard.token", cfg.Dashboard.Token)

	v.OneOf("media_server.kind", cfg.MediaServer.Kind,
		[]string{MediaServerMediaMTX, MediaServerNginxRTMP})
	switch cfg.MediaServer.Kind {
	case MediaServerMediaMTX:
		v.URL("media_server.api_url", cfg.MediaServer.APIURL, []string{"http", "https"})
	case MediaServerNginxRTMP:
		v.URL("media_server.stat_url", cfg.MediaServer.StatURL, []string{"http", "https"})
	}

	v.NotEmpty("input.path", cfg.Input.Path)
	v.StreamURL("input.rtmp_url", cfg.Input.RTMPURL)
	v.StreamURL("input.srt_url", cfg.Input.SRTURL)
	v.PositiveDuration("input.status_cache_ttl", cfg.Input.StatusCacheTTL)

	v.OneOf("cache.backend", cfg.Cache.Backend,
		[]string{CacheBackendMemory, CacheBackendRedis})
	if cfg.Cache.Backend == CacheBackendRedis {
		v.NotEmpty("cache.redis_addr", cfg.Cache.RedisAddr)
	}

	v.OneOf("log.level", cfg.Log.Level,
		[]string{"trace", "debug", "info", "warn", "error"})
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	if cfg.OTel.Enabled {
		v.NotEmpty("otel.endpoint", cfg.OTel.Endpoint)
		v.OneOf("otel.exporter", cfg.OTel.Exporter,
			[]string{ExporterOTLPGRPC, ExporterOTLPHTTP})
		v.FloatRange("otel.sample_ratio", cfg.OTel.SampleRatio, 0, 1)
	}

	return v.Err()
}
