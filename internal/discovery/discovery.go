// Package discovery lists the source files of a project.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// toolchainDirs are managed by version control or package tooling.
var toolchainDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
}

// Scanner walks a project root and keeps files accepted by Match.
type Scanner struct {
	Match func(relPath string) bool
	// VirtualEnv is an extra directory to exclude, normally $VIRTUAL_ENV.
	VirtualEnv string
	// Exclude lists further directory names to skip, e.g. "build".
	Exclude []string
}

func New(match func(string) bool) *Scanner {
	return &Scanner{Match: match, VirtualEnv: os.Getenv("VIRTUAL_ENV")}
}

// Scan returns slash-separated paths relative to root in lexical order.
// Symlinks, virtual environments, toolchain directories and Exclude are
// skipped.
func (s *Scanner) Scan(root string) ([]string, error) {
	venv := s.venv()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if s.skip(path, venv) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if s.Match == nil || s.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SkipDir reports whether the directory at path is excluded from scans.
func (s *Scanner) SkipDir(path string) bool {
	return s.skip(path, s.venv())
}

func (s *Scanner) skip(path, venv string) bool {
	base := filepath.Base(path)
	return toolchainDirs[base] || slices.Contains(s.Exclude, base) ||
		filepath.Clean(path) == venv || isVirtualEnv(path)
}

func (s *Scanner) venv() string {
	if s.VirtualEnv == "" {
		return ""
	}
	abs, err := filepath.Abs(s.VirtualEnv)
	if err != nil {
		return ""
	}
	return filepath.Clean(abs)
}

func isVirtualEnv(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "pyvenv.cfg"))
	return err == nil
}
