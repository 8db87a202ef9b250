package alerting

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads an engine's rules whenever the rules file changes.
type Watcher struct {
	path    string
	engine  *Engine
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	lastErr error
}

// NewWatcher creates a watcher for the rules file at path.
func NewWatcher(path string, engine *Engine) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the parent directory so that editors replacing the file are
	// noticed.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		path:    absPath,
		engine:  engine,
		watcher: watcher,
	}, nil
}

// Reload loads the rules file and replaces the engine's rules. The current
// rules are kept when the file is invalid.
func (w *Watcher) Reload() error {
	err := w.reload()
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
	return err
}

func (w *Watcher) reload() error {
	rules, err := LoadRulesFromFile(w.path)
	if err != nil {
		return err
	}
	if err := w.engine.ReplaceRules(rules); err != nil {
		return err
	}
	log.Printf("alert rules reloaded from %s: %d rules", w.path, len(rules))
	return nil
}

// LastError returns the error of the most recent reload, or nil when it
// succeeded.
func (w *Watcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Run reloads on every write to the rules file until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.Reload(); err != nil {
				log.Printf("alert rules reload failed: %v", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("rules watcher error: %v", err)
		}
	}
}

// Close stops watching. Run closes the watcher itself on return.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
