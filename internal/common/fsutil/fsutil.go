// Package fsutil holds small filesystem helpers shared by the config,
// deploy and ctl layers.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
// Paths without a '~' prefix are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		// ~otheruser is not supported
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// PathExists reports whether path exists. Permission errors count as
// existing so callers do not silently overwrite unreadable files.
func PathExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return !os.IsNotExist(err)
	}
	return true
}

// WriteFileDir writes b to path, creating the parent directory first.
// dirPerm applies to created directories, filePerm to the file itself.
func WriteFileDir(path string, b []byte, dirPerm, filePerm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	return os.WriteFile(path, b, filePerm)
}
