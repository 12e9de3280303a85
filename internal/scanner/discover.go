package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/qscan/internal/parser"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist
	ErrRootNotFound = errors.New("path does not exist")

	// ErrNoFiles is returned when discovery finds nothing to analyze
	ErrNoFiles = errors.New("no Python files found")
)

// DefaultExclude lists the path fragments skipped during discovery
var DefaultExclude = []string{"__pycache__", ".venv", "venv", ".git", "build", "dist"}

// Discover lists the Python files under root in lexical order. Files whose
// path below root contains any exclude fragment are skipped. A root that
// is itself a Python file is returned as a one-file list.
func Discover(root string, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("cannot access %s: %w", root, err)
	}

	if !info.IsDir() {
		if parser.DetectLanguage(root) != parser.LanguagePython {
			return nil, fmt.Errorf("%w: %s is not a Python file", ErrNoFiles, root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if path == root {
			return nil
		}

		excluded := isExcluded(root, path, exclude)
		if d.IsDir() {
			if excluded {
				return filepath.SkipDir
			}
			return nil
		}

		if excluded || parser.DetectLanguage(path) != parser.LanguagePython {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoFiles, root)
	}

	return files, nil
}

// isExcluded matches exclude fragments against the path relative to the
// root, so the location of the root itself never excludes anything
func isExcluded(root, path string, exclude []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range exclude {
		if pattern != "" && strings.Contains(rel, pattern) {
			return true
		}
	}
	return false
}
