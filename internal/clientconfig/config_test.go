package clientconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"asciisfu/internal/clientconfig"
)

func TestDefault(t *testing.T) {
	cfg := clientconfig.Default()
	if cfg.LastServerAddr == "" {
		t.Error("expected a non-empty default server address")
	}
	if cfg.AutoAcceptCalls {
		t.Error("expected auto-accept disabled by default")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := clientconfig.Config{
		Username:        "alice",
		LastServerAddr:  "192.168.1.10:8080",
		AutoAcceptCalls: true,
		Border:          true,
	}

	if err := clientconfig.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := clientconfig.Load()
	if loaded.Username != cfg.Username {
		t.Errorf("username: want %q got %q", cfg.Username, loaded.Username)
	}
	if loaded.LastServerAddr != cfg.LastServerAddr {
		t.Errorf("last server addr: want %q got %q", cfg.LastServerAddr, loaded.LastServerAddr)
	}
	if loaded.AutoAcceptCalls != cfg.AutoAcceptCalls {
		t.Errorf("auto accept: want %v got %v", cfg.AutoAcceptCalls, loaded.AutoAcceptCalls)
	}
	if loaded.Border != cfg.Border {
		t.Errorf("border: want %v got %v", cfg.Border, loaded.Border)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := clientconfig.Load()
	if cfg.LastServerAddr == "" {
		t.Error("expected non-empty default server address")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "asciisfu", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json {{{"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := clientconfig.Load()
	if cfg.LastServerAddr == "" {
		t.Errorf("expected default server address on corrupt file, got %q", cfg.LastServerAddr)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := clientconfig.Save(clientconfig.Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, "asciisfu", "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}
