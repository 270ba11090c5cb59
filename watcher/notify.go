package watcher

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounceDelay coalesces event bursts. Editors often save a file in
// multiple steps (write to temp, rename over the original).
const debounceDelay = 100 * time.Millisecond

// Notifier pushes change notifications for a file set through a channel,
// for reloaders that want events instead of polling a Watcher.
type Notifier struct {
	watcher *fsnotify.Watcher
	log     zerolog.Logger
	changes chan struct{}
}

// NewNotifier starts watching the given files. Files that cannot be
// watched are logged and skipped.
func NewNotifier(files []string, log zerolog.Logger) (*Notifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := fsw.Add(f); err != nil {
			log.Warn().Str("file", f).Err(err).Msg("cannot watch file")
		}
	}
	return &Notifier{watcher: fsw, log: log, changes: make(chan struct{}, 1)}, nil
}

// Changes delivers one value per settled burst of file events.
func (n *Notifier) Changes() <-chan struct{} { return n.changes }

// Run processes events until the context is cancelled, then closes the
// watcher.
func (n *Notifier) Run(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = n.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			// Remove and rename show up in atomic saves.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			n.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("file event")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case n.changes <- struct{}{}:
				default:
				}
			})

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}
