// Package discover finds Pyxis source files under a directory.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Extension is the suffix of Pyxis source files
const Extension = ".pyx"

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"__pycache__":  {},
}

// Files returns the Pyxis sources under root, relative to it and sorted.
// Hidden entries, dependency and build directories, and paths matched by
// root's .gitignore are skipped. A root that is itself a file is returned
// as-is.
func Files(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Base(root)}, nil
	}

	gi := loadGitignore(root)

	var results []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if gi != nil {
				rel, err := filepath.Rel(root, path)
				if err == nil && gi.MatchesPath(rel+"/") {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || filepath.Ext(name) != Extension {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

// OutputPath maps a source path to its generated JavaScript path
func OutputPath(src, ext string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
