package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the maximum number of config backups kept per index.
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files.
	BackupSuffix = ".bak"
)

// Backup creates a timestamped backup of indexDir's config.yaml.
// Returns the backup file path, or "" if no config exists yet to back up.
func Backup(indexDir string) (string, error) {
	path := Path(indexDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, timestamp)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config for backup: %w", err)
	}
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	_ = cleanupOldBackups(indexDir)
	return backupPath, nil
}

// ListBackups returns indexDir's config backups, newest first.
func ListBackups(indexDir string) ([]string, error) {
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list index directory: %w", err)
	}

	prefix := ConfigFileName + BackupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(indexDir, entry.Name()))
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		infoI, errI := os.Stat(backups[i])
		infoJ, errJ := os.Stat(backups[j])
		if errI != nil || errJ != nil {
			return false
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})
	return backups, nil
}

func cleanupOldBackups(indexDir string) error {
	backups, err := ListBackups(indexDir)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, backup := range backups[MaxBackups:] {
		_ = os.Remove(backup)
	}
	return nil
}

// Restore replaces indexDir's config.yaml with the contents of
// backupPath, itself backing up whatever config currently exists first.
func Restore(indexDir, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	// Read the backup before backing up the current config: a backup
	// taken in the same second gets the same timestamped path and would
	// overwrite backupPath.
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if _, err := os.Stat(Path(indexDir)); err == nil {
		if _, err := Backup(indexDir); err != nil {
			return fmt.Errorf("backup current config before restore: %w", err)
		}
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	if err := os.WriteFile(Path(indexDir), data, 0o644); err != nil {
		return fmt.Errorf("write restored config: %w", err)
	}
	return nil
}
