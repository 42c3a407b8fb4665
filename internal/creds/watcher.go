/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package creds

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// KeyFileWatcher watches an API key file and reloads it into the store
// when it changes, so keys can be rotated without restarting a session.
type KeyFileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	provider string
	store    *Store
	done     chan bool
}

// LoadKeyFile reads a provider key from a file and stores it. The file
// holds a single key, surrounding whitespace ignored.
func LoadKeyFile(store *Store, provider, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read key file %s: %w", path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return fmt.Errorf("key file %s is empty", path)
	}
	store.Set(provider, key)
	return nil
}

// NewKeyFileWatcher loads the key file once and starts watching it for
// changes.
func NewKeyFileWatcher(store *Store, provider, filePath string) (*KeyFileWatcher, error) {
	if err := LoadKeyFile(store, provider, filePath); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	kw := &KeyFileWatcher{
		watcher:  watcher,
		filePath: filePath,
		provider: provider,
		store:    store,
		done:     make(chan bool),
	}

	// Watch the directory containing the file (not the file itself)
	// because editors often delete and recreate files on save.
	dir := filepath.Dir(filePath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	go kw.watch()
	return kw, nil
}

// Stop stops watching for key file changes.
func (kw *KeyFileWatcher) Stop() {
	close(kw.done)
	kw.watcher.Close()
}

func (kw *KeyFileWatcher) watch() {
	// Debounce to avoid multiple reloads for rapid successive writes.
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case event, ok := <-kw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != kw.filePath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := LoadKeyFile(kw.store, kw.provider, kw.filePath); err != nil {
						log.Printf("[DBCHAT] Failed to reload key for %s: %v", kw.provider, err)
					} else {
						log.Printf("[DBCHAT] Reloaded key for %s", kw.provider)
					}
				})
			}

		case err, ok := <-kw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[DBCHAT] Watcher error for %s: %v", kw.filePath, err)

		case <-kw.done:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}
