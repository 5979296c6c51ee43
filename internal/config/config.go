// Package config loads and persists loca's user configuration file and
// resolves the per-project cache location.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/0x5457/loca/internal/util"
)

const (
	FileName = "loca.toml"
	EnvHome  = "LOCA_HOME"
)

var (
	ErrProjectRootUnset = errors.New("project root not set, run `loca set-root` first")
	ErrInvalidRoot      = errors.New("invalid project root")
)

// File is the persisted configuration.
type File struct {
	ProjectRoot string      `toml:"current_project_root"`
	Embed       EmbedConfig `toml:"embed"`
	Store       StoreConfig `toml:"store"`
	Index       IndexConfig `toml:"index"`
}

type EmbedConfig struct {
	// Provider is one of "api", "openai", "local".
	Provider       string `toml:"provider"`
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	Dimension      int    `toml:"dimension"`
	BatchSize      int    `toml:"batch_size"`
	Workers        int    `toml:"workers"`
	QueryCacheSize int    `toml:"query_cache_size"`
	// QueryCacheTTL is a Go duration string, e.g. "10m".
	QueryCacheTTL string `toml:"query_cache_ttl"`
}

type StoreConfig struct {
	// Backend is one of "sqlite", "qdrant", "memory".
	Backend    string `toml:"backend"`
	QdrantAddr string `toml:"qdrant_addr"`
	Collection string `toml:"collection"`
}

type IndexConfig struct {
	// Exclude lists extra directory names skipped by discovery and watching.
	Exclude []string `toml:"exclude"`
}

// DefaultDir returns $LOCA_HOME, or the loca directory under the user cache dir.
func DefaultDir() (string, error) {
	if d := os.Getenv(EnvHome); d != "" {
		return d, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "loca"), nil
}

// Load reads dir/loca.toml. A missing file is created empty and an
// unparseable one is reset to empty.
func Load(dir string) (*File, error) {
	p := filepath.Join(dir, FileName)
	var f File
	_, err := toml.DecodeFile(p, &f)
	switch {
	case err == nil:
		return &f, nil
	case errors.Is(err, fs.ErrNotExist):
		empty := &File{}
		return empty, Save(dir, empty)
	case isIOError(err):
		return nil, fmt.Errorf("read config: %w", err)
	default:
		empty := &File{}
		return empty, Save(dir, empty)
	}
}

func isIOError(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe)
}

// Save writes f to dir/loca.toml, creating dir when needed.
func Save(dir string, f *File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	out, err := os.Create(filepath.Join(dir, FileName))
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer out.Close()
	enc := toml.NewEncoder(out)
	enc.Indent = ""
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// SetProjectRoot validates path as an existing directory and stores its
// absolute form as the current project root.
func SetProjectRoot(dir, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, abs)
	}
	f, err := Load(dir)
	if err != nil {
		return "", err
	}
	f.ProjectRoot = abs
	return abs, Save(dir, f)
}

// ResolveProjectRoot returns the configured root, provided cwd lies under it.
func (f *File) ResolveProjectRoot(cwd string) (string, error) {
	if f == nil || f.ProjectRoot == "" {
		return "", ErrProjectRootUnset
	}
	root, err := filepath.Abs(f.ProjectRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = resolved
	}
	rel, err := filepath.Rel(root, cwd)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s, run `loca set-root`", ErrProjectRootUnset, cwd, root)
	}
	return root, nil
}

// ProjectCacheDir is base/<projectKey> for root.
func ProjectCacheDir(base, root string) string {
	return filepath.Join(base, util.ProjectKey(root))
}

// ProfileCacheDir is the cache directory of one backend and embedder
// pairing within the project's cache dir. Caches describe what one vector
// store holds, so each pairing keeps its own.
func ProfileCacheDir(base, root, profile string) string {
	return filepath.Join(ProjectCacheDir(base, root), profile)
}
