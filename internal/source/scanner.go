package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/ccproj/internal/pathcodec"
)

// ScanProjectDirs lists the encoded project directory names directly under
// projectsDir. Plain files and entries not starting with the separator (which
// includes dot-prefixed entries) are ignored. A listing failure is reported
// as a diagnostic with no results.
func ScanProjectDirs(projectsDir string) ([]string, []string) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil, []string{fmt.Sprintf("list %s: %v", projectsDir, err)}
	}

	var tokens []string
	for _, e := range entries {
		if !pathcodec.IsEncoded(e.Name()) {
			continue
		}
		if !isDirOrSymlink(e, projectsDir) {
			continue
		}
		tokens = append(tokens, e.Name())
	}
	return tokens, nil
}

// isDirOrSymlink reports whether the entry is a directory or a symlink that
// resolves to one.
func isDirOrSymlink(e os.DirEntry, parent string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && fi.IsDir()
}

// RootExists reports whether projectsDir exists and is a directory.
func RootExists(projectsDir string) bool {
	fi, err := os.Stat(projectsDir)
	return err == nil && fi.IsDir()
}
