package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/services/usage"
)

const debounceInterval = 100 * time.Millisecond

// Watcher reloads credentials from an .env file when it changes on disk.
type Watcher struct {
	mu            sync.Mutex
	path          string
	current       usage.Credentials
	watcher       *fsnotify.Watcher
	onChange      func(usage.Credentials)
	stopChan      chan struct{}
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// NewWatcher watches path and calls onChange with the new credentials
// whenever the file's credential values differ from current.
func NewWatcher(path string, current usage.Credentials, onChange func(usage.Credentials)) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("no .env file to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so that editors replacing the file are noticed.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:     path,
		current:  current,
		watcher:  fw,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// watchLoop handles file system events with debouncing.
func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.mu.Lock()
			if w.debounceTimer != nil {
				w.debounceTimer.Stop()
			}
			w.debounceTimer = time.AfterFunc(debounceInterval, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("credential watcher error", "error", err)

		case <-w.stopChan:
			return
		}
	}
}

// reload re-reads the file and reports changed credentials.
func (w *Watcher) reload() {
	select {
	case <-w.stopChan:
		return
	default:
	}

	values, err := godotenv.Read(w.path)
	if err != nil {
		logger.Warn("failed to reload credentials", "path", w.path, "error", err)
		return
	}
	creds := usage.Credentials{
		OrgID:      strings.TrimSpace(values[EnvOrgID]),
		SessionKey: strings.TrimSpace(values[EnvSessionKey]),
	}
	if creds.OrgID == "" || creds.SessionKey == "" {
		logger.Warn("ignoring .env without credentials", "path", w.path)
		return
	}

	w.mu.Lock()
	if creds == w.current {
		w.mu.Unlock()
		return
	}
	w.current = creds
	w.mu.Unlock()

	logger.Info("credentials changed", "path", w.path, "org", creds.OrgID)
	if w.onChange != nil {
		w.onChange(creds)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
