package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the vault dir so files dropped
// in by hand get cataloged without a restart. Returns a stop function.
func (v *Vault) Watch(ctx context.Context) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("Watch: NewWatcher failed: %w", err)
	}
	if err := watcher.Add(v.AudioDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("Watch: Add failed: %w", err)
	}

	logger.WithField("AudioDir", v.AudioDir).Info("Watch: start")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				v.handleEvent(ctx, ev)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Error("Watch: watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

func (v *Vault) handleEvent(ctx context.Context, ev fsnotify.Event) {
	// downloads land via rename from a .part file; hand copies end
	// with a create + writes. Either way the final name shows up here.
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	if !isMusicFile(ev.Name) || strings.HasSuffix(ev.Name, ".part") {
		return
	}

	logger.WithField("path", ev.Name).Debug("Watch: new file")

	if _, err := v.IndexFile(ctx, ev.Name); err != nil {
		// the API download path catalogs its own files, so "already
		// cataloged" is the common case here
		logger.Debugf("Watch: IndexFile skipped: %v", err)
	}
}
