package snapshot

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/logger"
)

const debouncePeriod = 500 * time.Millisecond

// watcher calls reload, debounced, whenever the snapshot file is written or
// replaced.
type watcher struct {
	path    string
	fs      *fsnotify.Watcher
	reload  func() error
	logger  *zap.SugaredLogger
	done    chan struct{}
	stopped sync.WaitGroup
	reloads sync.WaitGroup

	mu       sync.Mutex
	timer    *time.Timer
	stopping bool
}

func newWatcher(path string, reload func() error, log *zap.SugaredLogger) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	// Watch the directory: exports replace the file rather than rewrite it.
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "failed to watch snapshot %s", path)
	}

	w := &watcher{
		path:   filepath.Clean(path),
		fs:     fs,
		reload: reload,
		logger: log,
		done:   make(chan struct{}),
	}
	w.stopped.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer w.stopped.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debugw("Snapshot changed",
					logger.FieldPath, event.Name,
					"op", event.Op.String())
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Snapshot watcher error", logger.FieldError, err)
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopping {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debouncePeriod, w.fire)
}

func (w *watcher) fire() {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return
	}
	w.reloads.Add(1)
	w.mu.Unlock()
	defer w.reloads.Done()

	if err := w.reload(); err != nil {
		w.logger.Errorw("Snapshot reload failed, keeping previous snapshot",
			logger.FieldPath, w.path,
			logger.FieldError, err)
	}
}

// Stop ends the watch loop, cancels any pending reload and waits for one
// already running to finish.
func (w *watcher) Stop() error {
	w.mu.Lock()
	w.stopping = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.stopped.Wait()
	w.reloads.Wait()
	return errors.Wrap(err, "stop snapshot watcher")
}
