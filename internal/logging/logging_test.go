package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogDirEndsInSparsedexLogs(t *testing.T) {
	dir := DefaultLogDir()
	assert.Contains(t, dir, ".sparsedex")
	assert.Contains(t, dir, "logs")
}

func TestSetupWritesJSONLinesToFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	cfg := Config{Level: "info", FilePath: logPath, MaxSizeMB: 10, MaxFiles: 5}
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("build started", slog.Int("vectors", 3))
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build started")
	assert.Contains(t, string(data), "\"vectors\":3")
}

func TestSetupRespectsLevelFiltering(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	cfg := Config{Level: "warn", FilePath: logPath, MaxSizeMB: 10, MaxFiles: 5}
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("should be filtered out")
	logger.Warn("should appear")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be filtered out")
	assert.Contains(t, string(data), "should appear")
}

func TestLevelFromStringDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromString("debug"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("warn"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("nonsense"))
}

func TestFindLogFileExplicitMissing(t *testing.T) {
	_, err := FindLogFile("/nonexistent/path/to/log.log")
	require.Error(t, err)
}

func TestFindLogFileExplicitPresent(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "present.log")
	require.NoError(t, os.WriteFile(logPath, []byte("{}"), 0o644))

	found, err := FindLogFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, logPath, found)
}
