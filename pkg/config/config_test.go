package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "My Tasks", cfg.TaskList)
	assert.Equal(t, "lastWriterWins", cfg.Policy)
	assert.Equal(t, "honorDeletion", cfg.DeletionPolicy)
	require.NotNil(t, cfg.AllowReopen)
	assert.True(t, *cfg.AllowReopen)
	assert.Equal(t, 24*time.Hour, cfg.MatchWindow.Duration)
	assert.Equal(t, 5*time.Minute, cfg.CycleTimeout.Duration)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.TaskList = "Chores"
	cfg.Policy = "manual"
	cfg.FailOnConflict = true
	cfg.MatchWindow = Duration{2 * time.Hour}
	require.NoError(t, Save(cfg))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Chores", got.TaskList)
	assert.Equal(t, "manual", got.Policy)
	assert.True(t, got.FailOnConflict)
	assert.Equal(t, 2*time.Hour, got.MatchWindow.Duration)
}

func TestLoadFillsMissingFields(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "taskbridge")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"taskList": "Chores"}`), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Chores", cfg.TaskList)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.MatchWindow.Duration)
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"90s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	b, err := json.Marshal(Duration{5 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, `"5m0s"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}

func TestPathsShareConfigDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/taskbridge", dir)

	for _, f := range []func() (string, error){Path, StatePath, LockPath} {
		p, err := f()
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(p))
	}
}
