// package files discovers input files under a directory tree
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/sparkify/internal/shared"
)

// Skipped is a subtree or entry that could not be read during discovery.
type Skipped struct {
	Path string
	Err  error
}

// Result lists the files found under a root.
type Result struct {
	Root    string    // Absolute root that was walked
	Files   []string  // Absolute paths, sorted lexicographically
	Skipped []Skipped // Unreadable subtrees, in walk order
}

// Discover recursively walks root and returns every file whose extension matches ext.
//
// The extension is compared case-insensitively and may be given with or without the leading dot.
// A missing root fails with [shared.ErrPathNotFound] and an unreadable root with [shared.ErrPermissionDenied];
// unreadable subdirectories are skipped and reported in [Result.Skipped].
func Discover(root, ext string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrPathNotFound, root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, classify(abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrPathNotFound, abs)
	}

	suffix := normalizeExt(ext)
	result := &Result{Root: abs, Files: []string{}}

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return classify(abs, err)
			}
			result.Skipped = append(result.Skipped, Skipped{Path: path, Err: classify(path, err)})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if suffix == "" || strings.EqualFold(filepath.Ext(d.Name()), suffix) {
			result.Files = append(result.Files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.Files)
	return result, nil
}

// normalizeExt turns "json", ".json" and "*.json" into ".json".
func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, "*")
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// classify maps filesystem errors onto the discovery sentinels.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", shared.ErrPathNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", shared.ErrPermissionDenied, path)
	default:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
}
