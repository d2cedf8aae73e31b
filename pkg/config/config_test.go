package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/meshgen"
)

func load(t *testing.T, args ...string) *Config {
	t.Helper()
	f := NewFlagSet("test")
	require.NoError(t, f.Parse(args))
	cfg, err := Load(f)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := load(t)
	assert.Equal(t, DefaultFile, cfg.ConfigFile)
	assert.Equal(t, meshgen.StructGrid{CellX: 4, CellY: 4, CellZ: 4}, cfg.Grid)
	assert.Equal(t, 2, cfg.Ranks)
	assert.Equal(t, "claim", cfg.Partitioner)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.SlowPhase)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.WebMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(
		"ranks = 3\npartitioner = \"grow\"\ncellz = 6\nport = 9000\n"), 0o644))
	t.Setenv("DISTGRAPH_PORT", "9100")
	t.Setenv("DISTGRAPH_TIMEOUT", "5s")

	cfg := load(t, "--partitioner", "block", "-vv", "--slowphase", "250ms")
	assert.Equal(t, 250*time.Millisecond, cfg.SlowPhase)
	assert.Equal(t, 3, cfg.Ranks)               // file
	assert.Equal(t, 6, cfg.Grid.CellZ)          // file
	assert.Equal(t, 9100, cfg.Port)             // env over file
	assert.Equal(t, 5*time.Second, cfg.Timeout) // env over default
	assert.Equal(t, "block", cfg.Partitioner)   // flag over file
	assert.Equal(t, 2, cfg.VerboseCnt)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "other.toml")
	require.NoError(t, os.WriteFile(path, []byte("directed = true\n"), 0o644))

	cfg := load(t, "--config", path)
	assert.True(t, cfg.Directed)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("ranks = = 3\n"), 0o644))

	_, err := Load(NewFlagSet("test"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"defaults", nil, true},
		{"input skips grid checks", []string{"--input", "mesh.txt", "--cellz", "0"}, true},
		{"zero ranks", []string{"--ranks", "0"}, false},
		{"too many ranks", []string{"--ranks", "5"}, false},
		{"unknown partitioner", []string{"--partitioner", "metis"}, false},
		{"bad port", []string{"--web", "--port", "70000"}, false},
		{"negative slowphase", []string{"--slowphase=-1s"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := load(t, tt.args...).Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		verbosity string
		count     int
		want      slog.Level
	}{
		{"", 0, slog.LevelInfo},
		{"", 1, slog.LevelDebug},
		{"", 3, logging.LevelTrace},
		{"warn", 2, slog.LevelWarn},
		{"TRACE", 0, logging.LevelTrace},
	}
	for _, tt := range tests {
		got, err := (&Config{Verbosity: tt.verbosity, VerboseCnt: tt.count}).LogLevel()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := (&Config{Verbosity: "loud"}).LogLevel()
	assert.ErrorIs(t, err, ErrInvalid)
}
