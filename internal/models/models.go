package models

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

type SnippetKind string

const (
	KindFunction       SnippetKind = "function"
	KindClass          SnippetKind = "class"
	KindImport         SnippetKind = "import"
	KindGlobalVariable SnippetKind = "global-variable"
	KindUnknown        SnippetKind = "unknown"
)

// StringToSnippetKind maps a stored kind back to a SnippetKind, defaulting to KindUnknown.
func StringToSnippetKind(s string) SnippetKind {
	switch SnippetKind(s) {
	case KindFunction, KindClass, KindImport, KindGlobalVariable:
		return SnippetKind(s)
	default:
		return KindUnknown
	}
}

// Snippet is one indexed structural unit of a source file.
type Snippet struct {
	FilePath  string
	LineStart int
	LineEnd   int
	Code      string
	Kind      SnippetKind
	Name      string
	Docstring string
}

// ID returns the snippet identity "{file_path}:{line_start}".
func (s Snippet) ID() string {
	return s.Key().String()
}

// Key returns the snippet's cache key.
func (s Snippet) Key() CacheKey {
	return SnippetKey(s.FilePath, s.LineStart)
}

// EmbeddingText is the text handed to the embedder for this snippet.
func (s Snippet) EmbeddingText() string {
	var b strings.Builder
	b.WriteString("code: ")
	b.WriteString(s.Code)
	b.WriteString(", filename: ")
	b.WriteString(strings.TrimSuffix(path.Base(s.FilePath), path.Ext(s.FilePath)))
	b.WriteString(" type: ")
	b.WriteString(string(s.Kind))
	if s.Name != "" {
		b.WriteString(", name: ")
		b.WriteString(s.Name)
	}
	if s.Docstring != "" {
		b.WriteString(", docstring: ")
		b.WriteString(s.Docstring)
	}
	return b.String()
}

// Metadata is the flat representation stored next to a vector.
func (s Snippet) Metadata() map[string]any {
	return map[string]any{
		"file_path":  s.FilePath,
		"line_start": s.LineStart,
		"line_end":   s.LineEnd,
		"code":       s.Code,
		"type":       string(s.Kind),
		"name":       s.Name,
		"docstring":  s.Docstring,
	}
}

// SnippetFromMetadata rebuilds a Snippet from Metadata output. Numeric fields
// may come back as int, int64 or float64 depending on the backend.
func SnippetFromMetadata(m map[string]any) Snippet {
	str := func(k string) string {
		v, _ := m[k].(string)
		return v
	}
	num := func(k string) int {
		switch v := m[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case string:
			n, _ := strconv.Atoi(v)
			return n
		}
		return 0
	}
	s := Snippet{
		FilePath:  str("file_path"),
		LineStart: num("line_start"),
		LineEnd:   num("line_end"),
		Code:      str("code"),
		Kind:      StringToSnippetKind(str("type")),
		Name:      str("name"),
		Docstring: str("docstring"),
	}
	if s.LineEnd < s.LineStart {
		s.LineEnd = s.LineStart
	}
	return s
}

func (s Snippet) String() string {
	return fmt.Sprintf("Snippet(%s:%d-%d, type=%s, name=%s)", s.FilePath, s.LineStart, s.LineEnd, s.Kind, s.Name)
}

// KeyKind tags a CacheKey as a whole-file marker or a snippet id.
type KeyKind uint8

const (
	KeyFile KeyKind = iota
	KeySnippet
)

// CacheKey is a Snippet Cache key: either the per-file marker recording the
// fingerprint the file had when it was last processed, or a snippet id.
type CacheKey struct {
	Kind KeyKind
	Path string
	Line int
}

func FileKey(path string) CacheKey {
	return CacheKey{Kind: KeyFile, Path: path}
}

func SnippetKey(path string, line int) CacheKey {
	return CacheKey{Kind: KeySnippet, Path: path, Line: line}
}

// String encodes the key as persisted: the bare path for file markers,
// "path:line" for snippets.
func (k CacheKey) String() string {
	if k.Kind == KeyFile {
		return k.Path
	}
	return k.Path + ":" + strconv.Itoa(k.Line)
}

// ParseCacheKey decodes a persisted key. A key whose suffix after the last ':'
// is a positive integer is a snippet id; anything else is a file marker.
func ParseCacheKey(s string) CacheKey {
	if i := strings.LastIndexByte(s, ':'); i > 0 && i < len(s)-1 {
		if line, err := strconv.Atoi(s[i+1:]); err == nil && line > 0 {
			return SnippetKey(s[:i], line)
		}
	}
	return FileKey(s)
}

type SemanticHit struct {
	Snippet Snippet
	Score   float32
}

// Index progress and stages
type IndexStage string

const (
	IndexStageScan   IndexStage = "scan"
	IndexStageParse  IndexStage = "parse"
	IndexStageDelete IndexStage = "delete"
	IndexStageEmbed  IndexStage = "embed"
	IndexStageSave   IndexStage = "save"
	IndexStageDone   IndexStage = "done"
)

// IndexProgress represents streaming progress updates for indexing
type IndexProgress struct {
	Stage        IndexStage
	TotalFiles   int
	ParsedFiles  int
	CurrentFile  string
	Cached       bool
	FileSnippets int
	Pending      int
	Stats        *SyncStats
}

// SyncStats summarises one synchronization run.
type SyncStats struct {
	Files     int
	Cached    int
	Parsed    int
	Extracted int
	Added     int
	Deleted   int
	Rescued   int
	Duration  time.Duration
}
