// Package cache persists the two fingerprint mappings that drive incremental
// indexing: the file cache (path to file hash) and the snippet cache (file
// sentinel or snippet id to hash).
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/models"
)

type Kind string

const (
	Files    Kind = "file_cache"
	Snippets Kind = "snippet_cache"
)

func (k Kind) fileName() string { return string(k) + ".json" }

// Store reads and writes cache files under a single directory, or keeps
// them in memory when it has none.
type Store struct {
	dir    string
	logger *zap.Logger

	mu  sync.Mutex
	mem map[Kind]map[string]string
}

func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// NewMemoryStore returns a Store that never touches disk. It pairs with
// vector stores that do not outlive the process.
func NewMemoryStore(logger *zap.Logger) *Store {
	s := NewStore("", logger)
	s.mem = map[Kind]map[string]string{}
	return s
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Path(kind Kind) string {
	return filepath.Join(s.dir, kind.fileName())
}

// Load returns the persisted mapping for kind. A missing file is created
// empty; an unparseable file is reset to empty. Both yield an empty map.
func (s *Store) Load(kind Kind) (map[string]string, error) {
	if s.mem != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		m := maps.Clone(s.mem[kind])
		if m == nil {
			m = map[string]string{}
		}
		return m, nil
	}
	p := s.Path(kind)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(kind, map[string]string{}); err != nil {
			return nil, err
		}
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		s.logger.Debug("resetting corrupted cache", zap.String("path", p), zap.Error(err))
		if err := s.Save(kind, map[string]string{}); err != nil {
			return nil, err
		}
		return map[string]string{}, nil
	}
	return m, nil
}

// Save replaces the persisted mapping for kind with m. Keys are written in
// sorted order with four space indentation.
func (s *Store) Save(kind Kind, m map[string]string) error {
	if m == nil {
		m = map[string]string{}
	}
	if s.mem != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mem[kind] = maps.Clone(m)
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	tmp, err := os.CreateTemp(s.dir, kind.fileName()+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(kind)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", kind, err)
	}
	return nil
}

func (s *Store) LoadFiles() (map[string]string, error) {
	return s.Load(Files)
}

func (s *Store) SaveFiles(m map[string]string) error {
	return s.Save(Files, m)
}

// LoadSnippets decodes the snippet cache into tagged keys.
func (s *Store) LoadSnippets() (map[models.CacheKey]string, error) {
	raw, err := s.Load(Snippets)
	if err != nil {
		return nil, err
	}
	out := make(map[models.CacheKey]string, len(raw))
	for k, v := range raw {
		out[models.ParseCacheKey(k)] = v
	}
	return out, nil
}

func (s *Store) SaveSnippets(m map[models.CacheKey]string) error {
	raw := make(map[string]string, len(m))
	for k, v := range m {
		raw[k.String()] = v
	}
	return s.Save(Snippets, raw)
}
