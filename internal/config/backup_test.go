package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupNoConfigReturnsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	path, err := Backup(dir)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackupCreatesTimestampedCopy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, DefaultConfig()))

	path, err := Backup(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	backups, err := ListBackups(dir)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestCleanupKeepsOnlyMaxBackups(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, DefaultConfig()))

	for i := 0; i < MaxBackups+2; i++ {
		_, err := Backup(dir)
		require.NoError(t, err)
	}

	backups, err := ListBackups(dir)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), MaxBackups)
}

func TestRestoreReplacesCurrentConfig(t *testing.T) {
	dir := t.TempDir()
	original := DefaultConfig()
	original.Index.FullScanThreshold = 111
	require.NoError(t, Save(dir, original))

	backupPath, err := Backup(dir)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	modified := original
	modified.Index.FullScanThreshold = 999
	require.NoError(t, Save(dir, modified))

	require.NoError(t, Restore(dir, backupPath))

	restored, existed, err := Load(dir)
	require.NoError(t, err)
	require.True(t, existed)
	assert.Equal(t, uint32(111), restored.Index.FullScanThreshold)
}
