package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/0x5457/loca/internal/models"
)

// Collector accumulates snippets for one file. A snippet id is its start
// line, so anything that starts on a line already taken by an earlier
// snippet is folded into that snippet: its code grows to span both nodes and
// no new snippet is made.
type Collector struct {
	path string
	src  []byte
	out  []models.Snippet
	rows map[uint]*rowGroup
}

// rowGroup is the byte span and the snippets owning one start line.
type rowGroup struct {
	start, end uint
	idx        []int
}

func NewCollector(relPath string, src []byte) *Collector {
	return &Collector{path: relPath, src: src, rows: map[uint]*rowGroup{}}
}

// Text returns the source covered by n.
func (c *Collector) Text(n *tree_sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

// fold widens the snippets already starting on row to cover body. It
// reports false when row is still free.
func (c *Collector) fold(row uint, body *tree_sitter.Node) bool {
	g, ok := c.rows[row]
	if !ok {
		return false
	}
	start, end := g.start, g.end
	if s := body.StartByte(); s < start {
		start = s
	}
	if e := body.EndByte(); e > end {
		end = e
	}
	if start == g.start && end == g.end {
		return true
	}
	g.start, g.end = start, end
	code := string(c.src[start:end])
	lineEnd := int(body.EndPosition().Row) + 1
	for _, i := range g.idx {
		c.out[i].Code = code
		if lineEnd > c.out[i].LineEnd {
			c.out[i].LineEnd = lineEnd
		}
	}
	return true
}

func (c *Collector) claim(row uint, body *tree_sitter.Node, snippets ...models.Snippet) {
	g := &rowGroup{start: body.StartByte(), end: body.EndByte()}
	for _, s := range snippets {
		g.idx = append(g.idx, len(c.out))
		c.out = append(c.out, s)
	}
	c.rows[row] = g
}

// Statement records a top-level import or assignment. Assignments produce one
// snippet per name and are dropped when names is empty.
func (c *Collector) Statement(n *tree_sitter.Node, kind models.SnippetKind, names ...string) {
	row := n.StartPosition().Row
	if c.fold(row, n) {
		return
	}
	if kind != models.KindImport && len(names) == 0 {
		return
	}
	if kind == models.KindImport {
		names = []string{""}
	}
	snippets := make([]models.Snippet, 0, len(names))
	for _, name := range names {
		snippets = append(snippets, models.Snippet{
			FilePath:  c.path,
			LineStart: int(row) + 1,
			LineEnd:   int(n.EndPosition().Row) + 1,
			Code:      c.Text(n),
			Kind:      kind,
			Name:      name,
		})
	}
	c.claim(row, n, snippets...)
}

// Definition records a function or class. def supplies the start line; body
// supplies the code, which differs from def for decorated definitions.
func (c *Collector) Definition(def, body *tree_sitter.Node, kind models.SnippetKind, name, doc string) {
	row := def.StartPosition().Row
	if c.fold(row, body) {
		return
	}
	c.claim(row, body, models.Snippet{
		FilePath:  c.path,
		LineStart: int(row) + 1,
		LineEnd:   int(body.EndPosition().Row) + 1,
		Code:      c.Text(body),
		Kind:      kind,
		Name:      name,
		Docstring: doc,
	})
}

func (c *Collector) Snippets() []models.Snippet {
	return c.out
}
