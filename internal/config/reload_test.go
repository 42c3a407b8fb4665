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
	"os"
	"path/filepath"
	"testing"
)

func TestReloadableConfig(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "dbchat.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, CLIFlags{})
	if err != nil {
		t.Fatal(err)
	}
	rc := NewReloadableConfig(cfg, path, CLIFlags{})

	var notified *Config
	rc.OnReload(func(c *Config) { notified = c })

	if err := os.WriteFile(path, []byte("llm:\n  provider: gemini\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := rc.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if rc.Get().LLM.Provider != "gemini" {
		t.Errorf("provider after reload = %q", rc.Get().LLM.Provider)
	}
	if notified == nil || notified.LLM.Provider != "gemini" {
		t.Error("reload callback not invoked with the new config")
	}
}

func TestReloadKeepsOldConfigOnFailure(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "dbchat.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path, CLIFlags{})
	if err != nil {
		t.Fatal(err)
	}
	rc := NewReloadableConfig(cfg, path, CLIFlags{})

	// Break the file: the reload must fail and leave the old config alone
	if err := os.WriteFile(path, []byte("llm:\n  provider: nonsense\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := rc.Reload(); err == nil {
		t.Error("expected reload failure for invalid provider")
	}
	if rc.Get().LLM.Provider != "openai" {
		t.Errorf("provider = %q, old config should survive a failed reload", rc.Get().LLM.Provider)
	}
}

func TestReloadWithoutPath(t *testing.T) {
	rc := NewReloadableConfig(defaultConfig(), "", CLIFlags{})
	if err := rc.Reload(); err == nil {
		t.Error("expected error when no config file path is set")
	}
}
