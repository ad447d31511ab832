// SPDX-License-Identifier: MIT

// Command relayd supervises FFmpeg relay workers that fan one live input
// out to multiple streaming destinations, and exposes the control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/streamfork/relayd/internal/config"
	"github.com/streamfork/relayd/internal/daemon"
	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/version"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheckCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("relayd %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// The logger is configured exactly once per process, before the config
	// loader runs, so level and encoding come straight from the environment.
	log.Configure(log.Config{
		Level:   os.Getenv("RELAYD_LOG_LEVEL"),
		Format:  os.Getenv("RELAYD_LOG_FORMAT"),
		Service: "relayd",
	})

	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit flag first, RELAYD_CONFIG second, else ENV-only.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		effectiveConfigPath = strings.TrimSpace(os.Getenv("RELAYD_CONFIG"))
	}

	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// A level set in the file (not the environment) applies here.
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn().Err(err).Str("level", cfg.Log.Level).Msg("invalid log level, keeping default")
	}

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Listen).
		Msg("starting relayd")

	logger.Info().Msgf("→ Dashboard: %s", maskURL(cfg.Dashboard.URL))
	logger.Info().Msgf("→ Media server: %s (%s)", cfg.MediaServer.Kind, mediaServerURL(cfg))
	logger.Info().Msgf("→ Input path: %s", cfg.Input.Path)
	logger.Info().Msgf("→ FFmpeg: %s", cfg.FFmpegPath)
	logger.Info().Msgf("→ Cache: %s", cfg.Cache.Backend)
	logger.Info().Msg("→ API token: configured")

	holder := config.NewHolder(cfg, loader)

	rt, err := daemon.Build(ctx, cfg, holder)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.build_failed").
			Msg("failed to build runtime")
	}

	app := daemon.NewApp(logger, rt)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}

// mediaServerURL picks the status URL the input detector will poll.
func mediaServerURL(cfg config.Config) string {
	if cfg.MediaServer.Kind == config.MediaServerNginxRTMP {
		return maskURL(cfg.MediaServer.StatURL)
	}
	return maskURL(cfg.MediaServer.APIURL)
}
