// Package clientconfig manages persistent client-side preferences for the
// ASCII call client: the remembered username, last server address, and
// REPL behavior toggles a user would otherwise have to retype on every
// run. It is the only thing this repository ever writes to disk — the
// roster, calls, and stream-id bindings are all process-local server
// state with no persistence of their own — so the file lives under
// os.UserConfigDir() the way any single-user CLI tool's preferences
// would, read with tolerant defaults-on-error semantics since a missing
// or corrupt config file should never block starting the client.
package clientconfig

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"asciisfu/internal/wire"
)

// Config holds all persistent client preferences.
type Config struct {
	Username        string `json:"username"`
	LastServerAddr  string `json:"last_server_addr"`
	AutoAcceptCalls bool   `json:"auto_accept_calls"`
	Border          bool   `json:"border"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		LastServerAddr: net.JoinHostPort("localhost", strconv.Itoa(wire.DefaultControlPort)),
	}
}

// Path returns the absolute path to the config file, namespaced under a
// dedicated subdirectory so it doesn't collide with any other tool's
// files in the same user config root.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "asciisfu", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned — never an error.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk as indented JSON, creating the config
// directory if this is the first run. A single os.WriteFile is good
// enough here: this is a single-user preferences file with no concurrent
// writers to race against, so the extra complexity of a write-to-temp-
// then-rename swap isn't warranted.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
