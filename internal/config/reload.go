// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/streamfork/relayd/internal/log"
)

// Holder holds the configuration with atomic reloading. It provides
// thread-safe access and supports hot reloading from file changes, SIGHUP
// or a manual trigger. A reload never alters a running worker: new values
// apply to subsequent starts only.
type Holder struct {
	mu      sync.RWMutex
	current Config
	loader  *Loader
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- Config
}

// NewHolder creates a configuration holder around an initial config.
func NewHolder(initial Config, loader *Loader) *Holder {
	return &Holder{
		current:         initial,
		loader:          loader,
		logger:          log.WithComponent("config"),
		reloadListeners: make([]chan<- Config, 0),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-resolves the configuration and swaps it in atomically. If the
// new configuration fails to load or validate, the old one is kept.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration, keeping old")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded")

	return nil
}

// StartWatcher starts watching the config file for changes. Without a
// config file this is a no-op (configuration comes from ENV only).
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.loader == nil || h.loader.configPath == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	h.watcher = watcher

	if err := watcher.Add(h.loader.configPath); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.loader.configPath).
		Msg("watching config file for changes")

	go h.watchLoop(ctx)

	return nil
}

// watchLoop reacts to file events with a debounce so editors that write in
// multiple steps trigger a single reload.
func (h *Holder) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Write and Create cover vim, nano and plain redirection
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().
					Str("event", "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().
							Err(err).
							Str("event", "config.auto_reload_failed").
							Msg("automatic config reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running).
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel that receives the new config after
// every successful reload. The caller owns the channel.
func (h *Holder) RegisterListener(ch chan<- Config) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new config to all listeners without blocking.
func (h *Holder) notifyListeners(newCfg Config) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs the operationally relevant differences between the old
// and new configuration. Secrets and key-bearing URLs stay redacted.
func (h *Holder) logChanges(old, newCfg Config) {
	if old.Log.Level != newCfg.Log.Level {
		h.logger.Info().
			Str("old", old.Log.Level).
			Str("new", newCfg.Log.Level).
			Msg("config changed: log level")
	}
	if old.RateLimitRPS != newCfg.RateLimitRPS {
		h.logger.Info().
			Int("old", old.RateLimitRPS).
			Int("new", newCfg.RateLimitRPS).
			Msg("config changed: rate limit")
	}
	if old.FFmpegPath != newCfg.FFmpegPath {
		h.logger.Info().
			Str("old", old.FFmpegPath).
			Str("new", newCfg.FFmpegPath).
			Msg("config changed: ffmpeg path")
	}
	if old.Dashboard.URL != newCfg.Dashboard.URL {
		h.logger.Info().
			Str("old", maskURL(old.Dashboard.URL)).
			Str("new", maskURL(newCfg.Dashboard.URL)).
			Msg("config changed: dashboard URL")
	}
	if old.Input.Path != newCfg.Input.Path {
		h.logger.Info().
			Str("old", old.Input.Path).
			Str("new", newCfg.Input.Path).
			Msg("config changed: input path")
	}
	if old.MediaServer.Kind != newCfg.MediaServer.Kind {
		h.logger.Info().
			Str("old", old.MediaServer.Kind).
			Str("new", newCfg.MediaServer.Kind).
			Msg("config changed: media server kind")
	}
}

// maskURL redacts a URL for logging.
func maskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	return "***redacted***"
}
