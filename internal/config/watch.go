package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Watch polls path and calls onUpdate with the reloaded config whenever the
// file's modification time moves forward. It does not fire for the version
// the caller already loaded. An edit that fails to load is logged and skipped
// until the file changes again.
func Watch(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*Config)) error {
	if path == "" {
		path = "configs/config.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "config_watcher").Str("path", path).Logger()
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(path)
			if err != nil {
				l.Debug().Err(err).Msg("config stat failed")
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			cfg, err := Load(path)
			if err != nil {
				l.Error().Err(err).Msg("config reload failed, keeping previous settings")
				continue
			}
			l.Info().Msg("config reloaded")
			if onUpdate != nil {
				onUpdate(cfg)
			}
		}
	}()

	return nil
}
