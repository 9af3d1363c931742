package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ConfigSource produces a stream of parsed File snapshots (spec.md §6);
// validation happens in internal/reload, which also serialises emissions so
// two file-change events never race a concurrent compile.
type ConfigSource interface {
	// Snapshots returns a channel the reloader drains until ctx is done.
	// The first value is delivered as soon as the initial load succeeds.
	Snapshots(ctx context.Context) (<-chan *File, <-chan error)
}

// FileProvider watches a single YAML file with fsnotify and re-parses it on
// every write/rename/create event (editors commonly replace a file via
// rename-into-place, which fsnotify reports as Create on the new inode).
type FileProvider struct {
	path string
	log  zerolog.Logger
}

func NewFileProvider(path string, log zerolog.Logger) *FileProvider {
	return &FileProvider{path: path, log: log}
}

func (p *FileProvider) Snapshots(ctx context.Context) (<-chan *File, <-chan error) {
	out := make(chan *File, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		f, warnings, err := Load(p.path)
		if err != nil {
			errs <- err
			return
		}
		for _, w := range warnings {
			p.log.Warn().Str("file", p.path).Msg(w)
		}
		out <- f

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			errs <- fmt.Errorf("config: fsnotify: %w", err)
			return
		}
		defer watcher.Close()
		if err := watcher.Add(p.path); err != nil {
			errs <- fmt.Errorf("config: watch %s: %w", p.path, err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Rename-into-place replaces the watched inode; re-add defensively.
				_ = watcher.Add(p.path)
				f, warnings, err := Load(p.path)
				if err != nil {
					p.log.Error().Err(err).Str("file", p.path).Msg("config reload: parse failed, keeping previous snapshot")
					continue
				}
				for _, w := range warnings {
					p.log.Warn().Str("file", p.path).Msg(w)
				}
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.log.Error().Err(err).Msg("config: fsnotify watcher error")
			}
		}
	}()

	return out, errs
}
