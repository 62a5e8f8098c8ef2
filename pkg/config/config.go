// Package config reads and writes the taskbridge config file, a JSON
// document under ~/.config/taskbridge.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	xdgAppName  = "taskbridge"
	configFile  = "config.json"
	defaultList = "My Tasks"
)

// Duration wraps time.Duration so config values read as "30s" or "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Config is everything the CLI needs to assemble a sync cycle.
type Config struct {
	// TaskList is the Google Tasks list title to sync against.
	TaskList string `json:"taskList"`

	// Policy selects conflict resolution for fields modified on both
	// sides: lastWriterWins, sourceOfTruthWeb, sourceOfTruthLocal, manual.
	Policy string `json:"policy"`

	// DeletionPolicy decides what a deletion on one side does when the
	// other side was edited: honorDeletion or restoreOnRemoteEdit.
	DeletionPolicy string `json:"deletionPolicy"`

	// AllowReopen permits completed tasks to flip back to open when the
	// other side says so.
	AllowReopen *bool `json:"allowReopen,omitempty"`

	// MatchWindow bounds the creation-time proximity used when matching
	// unlinked records by title on first run.
	MatchWindow Duration `json:"matchWindow"`

	// FailOnConflict makes `sync run` exit non-zero when a cycle surfaces
	// unresolved conflicts.
	FailOnConflict bool `json:"failOnConflict"`

	MaxAttempts  int      `json:"maxAttempts"`
	CycleTimeout Duration `json:"cycleTimeout"`

	// MappingFile optionally overrides the built-in field mapping table
	// with a YAML file.
	MappingFile string `json:"mappingFile,omitempty"`
}

// Default returns the documented defaults. Policy defaults are deliberate
// choices, not inherited behavior: last writer wins on concurrent edits,
// and deletions are honored over edits.
func Default() *Config {
	allow := true
	return &Config{
		TaskList:       defaultList,
		Policy:         "lastWriterWins",
		DeletionPolicy: "honorDeletion",
		AllowReopen:    &allow,
		MatchWindow:    Duration{24 * time.Hour},
		MaxAttempts:    4,
		CycleTimeout:   Duration{5 * time.Minute},
	}
}

// Dir returns the taskbridge config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// StatePath returns the SQLite sync-state database location.
func StatePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// LockPath returns the cross-process sync lock location.
func LockPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sync.lock"), nil
}

// Load reads the config file, falling back to defaults when it does not
// exist. Missing fields are filled with their defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.TaskList == "" {
		cfg.TaskList = defaultList
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.MatchWindow.Duration <= 0 {
		cfg.MatchWindow = Duration{24 * time.Hour}
	}
	if cfg.CycleTimeout.Duration <= 0 {
		cfg.CycleTimeout = Duration{5 * time.Minute}
	}
	return cfg, nil
}

// Save writes the config file, creating the directory as needed.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
