package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sweeney/radio-buttons/internal/binding"
)

const (
	// MinReloadInterval throttles reloads when an editor writes in bursts.
	MinReloadInterval = 500 * time.Millisecond
	reloadDelay       = 50 * time.Millisecond
)

// Watcher reloads the settings file whenever it is written.
type Watcher struct {
	fw   *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching the settings file. onChange is called from the
// watcher goroutine with the freshly loaded bindings, or with the read error
// if the file could not be read. The file's directory is watched so that
// editors that replace the file are picked up too.
func (l *Loader) Watch(onChange func(binding.Bindings, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(l.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	w := &Watcher{fw: fw, done: make(chan struct{})}
	go w.run(l, onChange)
	return w, nil
}

func (w *Watcher) run(l *Loader, onChange func(binding.Bindings, error)) {
	defer close(w.done)

	target := filepath.Clean(l.path)
	var last time.Time
	reload := func() {
		last = time.Now()
		// Let the writer finish before reading.
		time.Sleep(reloadDelay)
		log.Printf("config: %s changed, reloading", l.path)
		onChange(l.Load())
	}

	// A write inside the throttle window schedules one more reload for when
	// the window closes, so the last contents written always get loaded.
	var pending *time.Timer
	var fire <-chan time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if fire != nil {
				continue
			}
			if wait := MinReloadInterval - time.Since(last); wait > 0 {
				pending = time.NewTimer(wait)
				fire = pending.C
				continue
			}
			reload()

		case <-fire:
			fire = nil
			reload()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		}
	}
}

// Close stops watching and waits for the watcher goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
