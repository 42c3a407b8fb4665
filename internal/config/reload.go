/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"sync"
)

// ReloadableConfig wraps a Config with thread-safe access and reload
// capability, so an interactive session can pick up edits to its config
// file without restarting.
type ReloadableConfig struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	cliFlags CLIFlags
	onReload []func(*Config)
}

// NewReloadableConfig creates a new reloadable configuration
func NewReloadableConfig(config *Config, path string, cliFlags CLIFlags) *ReloadableConfig {
	return &ReloadableConfig{
		config:   config,
		path:     path,
		cliFlags: cliFlags,
	}
}

// Get returns the current configuration (read-only access)
func (rc *ReloadableConfig) Get() *Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.config
}

// OnReload registers a callback invoked with the new config after every
// successful reload.
func (rc *ReloadableConfig) OnReload(fn func(*Config)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onReload = append(rc.onReload, fn)
}

// Reload reloads the configuration from the file.
// Returns an error if the reload fails, but keeps the old config.
func (rc *ReloadableConfig) Reload() error {
	rc.mu.Lock()

	if rc.path == "" {
		rc.mu.Unlock()
		return fmt.Errorf("no configuration file path set")
	}

	// LoadConfig applies CLI flags internally, so flag overrides survive
	newConfig, err := LoadConfig(rc.path, rc.cliFlags)
	if err != nil {
		rc.mu.Unlock()
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rc.config = newConfig
	callbacks := make([]func(*Config), len(rc.onReload))
	copy(callbacks, rc.onReload)
	rc.mu.Unlock()

	for _, fn := range callbacks {
		fn(newConfig)
	}
	return nil
}
