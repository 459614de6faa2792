package loader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates cached modules under prefix whenever the matching file
// in dir changes. onChange, if set, is called with each invalidated URL.
// Watch returns once the watcher is running; it stops when ctx is done.
func (l *Loader) Watch(ctx context.Context, dir, prefix string, onChange func(url string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				rel, err := filepath.Rel(dir, event.Name)
				if err != nil {
					continue
				}
				url := prefix + filepath.ToSlash(rel)
				if l.Invalidate(url) {
					l.logger.Info().Str("url", url).Str("op", event.Op.String()).Msg("module changed")
					if onChange != nil {
						onChange(url)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn().Err(err).Msg("watch error")
			}
		}
	}()
	return nil
}
