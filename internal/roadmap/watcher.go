package roadmap

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reload is sent by a Watcher after the roadmap file changed. Exactly one of
// Plan and Err is set.
type Reload struct {
	Plan *Plan
	Err  error
}

// Watcher reloads a roadmap file whenever it is written. The directory is
// watched rather than the file so editors that replace the file on save are
// still picked up.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Reloads  <-chan Reload

	reloads chan Reload
	quit    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the roadmap at path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Reload, 4)
	return &Watcher{
		Path:     abs,
		Debounce: 100 * time.Millisecond,
		Reloads:  ch,
		reloads:  ch,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching. On failure the underlying watcher is closed;
// Stop may still be called.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Reloads channel.
func (w *Watcher) Stop() {
	close(w.quit)
	w.watcher.Close()
	<-w.done
	close(w.reloads)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(w.Debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.Now()
			}

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.Debounce {
				continue
			}
			pending = time.Time{}
			plan, err := LoadFile(w.Path)
			select {
			case w.reloads <- Reload{Plan: plan, Err: err}:
			case <-w.quit:
				return
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
