package parser

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/0x5457/loca/internal/models"
)

var ErrUnsupported = errors.New("unsupported file type")

// Parser extracts snippets from the content of one project-relative file.
type Parser interface {
	ParseFile(relPath string, content []byte) ([]models.Snippet, error)
	Extensions() []string
}

// SyntaxError reports the first ERROR or MISSING node of a parse tree.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s at line %d, column %d", e.Path, e.Line, e.Column)
}

// CheckSyntax returns a *SyntaxError when the tree rooted at root has errors.
func CheckSyntax(relPath string, root *tree_sitter.Node) error {
	if !root.HasError() {
		return nil
	}
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	pos := bad.StartPosition()
	return &SyntaxError{Path: relPath, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
}

func firstErrorNode(n *tree_sitter.Node) *tree_sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			if bad := firstErrorNode(c); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// Registry dispatches to a Parser by file extension.
type Registry struct {
	byExt map[string]Parser
	exts  []string
}

func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byExt: map[string]Parser{}}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			if _, ok := r.byExt[ext]; !ok {
				r.exts = append(r.exts, ext)
			}
			r.byExt[ext] = p
		}
	}
	sort.Strings(r.exts)
	return r
}

func (r *Registry) Extensions() []string {
	return append([]string(nil), r.exts...)
}

// Supports reports whether relPath has a registered extension.
// TypeScript declaration files are never indexed.
func (r *Registry) Supports(relPath string) bool {
	if strings.HasSuffix(relPath, ".d.ts") {
		return false
	}
	_, ok := r.byExt[path.Ext(relPath)]
	return ok
}

func (r *Registry) ParseFile(relPath string, content []byte) ([]models.Snippet, error) {
	if !r.Supports(relPath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, relPath)
	}
	return r.byExt[path.Ext(relPath)].ParseFile(relPath, content)
}

var _ Parser = (*Registry)(nil)
