// Package hook installs the Taskwarrior on-modify hook that triggers a
// background sync after local edits. The hook script passes the modified
// task through untouched and detaches the sync so task commands never wait
// on the network.
package hook

import (
	"fmt"
	"os"
	"path/filepath"
)

const hookName = "on-modify-taskbridge"

// script must obey the Taskwarrior hook contract: read the old and new
// task JSON from stdin, emit the new one on stdout, exit zero. The sync is
// fully detached; its flock prevents overlapping cycles when several edits
// land in a row.
const script = `#!/bin/sh
# taskbridge on-modify hook. Managed by 'taskbridge hook install'.
read -r old_task
read -r new_task
printf '%s\n' "$new_task"
( taskbridge sync run >/dev/null 2>&1 & )
exit 0
`

// Manager locates and manages the hook script inside a Taskwarrior hooks
// directory.
type Manager struct {
	dir string
}

// NewManager uses the given hooks directory, or the default Taskwarrior
// location when empty.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		var err error
		dir, err = defaultDir()
		if err != nil {
			return nil, err
		}
	}
	return &Manager{dir: dir}, nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".task", "hooks"), nil
}

// Path returns the full hook script path.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, hookName)
}

// Installed reports whether the hook script exists.
func (m *Manager) Installed() bool {
	info, err := os.Stat(m.Path())
	return err == nil && info.Mode().IsRegular()
}

// Install writes the hook script. An existing hook is left alone unless
// force is set, so local modifications survive reinstalls by default.
func (m *Manager) Install(force bool) error {
	if m.Installed() && !force {
		return fmt.Errorf("hook already installed at %s (use --force to overwrite)", m.Path())
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create hooks directory: %w", err)
	}
	if err := os.WriteFile(m.Path(), []byte(script), 0o755); err != nil {
		return fmt.Errorf("write hook script: %w", err)
	}
	return nil
}

// Remove deletes the hook script. Removing an absent hook is not an error.
func (m *Manager) Remove() error {
	err := os.Remove(m.Path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove hook script: %w", err)
	}
	return nil
}
