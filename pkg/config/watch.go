package config

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/fsnotify.v1"
)

// Watch reloads filename whenever it is written, created or renamed into
// place, and hands every config that loads and validates to onChange. Bad
// edits are logged and skipped. The directory is watched rather than the
// file because editors often save by replacing it.
//
// fsnotify only sees the OS filesystem, so the file is always read from it.
func Watch(ctx context.Context, filename string, onChange func(*Config)) error {
	fs := afero.NewOsFs()

	abs, err := filepath.Abs(filename)
	if err != nil {
		return errors.Errorf("resolving config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating config watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return errors.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	logger := zerolog.Ctx(ctx).With().Str("config", abs).Logger()

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				cfg, err := Load(fs, abs)
				if err != nil {
					logger.Warn().Err(err).Msg("reloading config")
					continue
				}

				logger.Debug().Str("op", ev.Op.String()).Msg("config reloaded")
				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("config watcher")
			}
		}
	}()

	return nil
}
