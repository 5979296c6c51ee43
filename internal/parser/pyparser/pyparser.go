package pyparser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/parser"
)

type PyParser struct{}

func New() *PyParser { return &PyParser{} }

func (p *PyParser) Extensions() []string { return []string{".py"} }

// ParseFile extracts top-level imports and simple-name assignments, then
// every function and class in the file, nested ones included.
func (p *PyParser) ParseFile(relPath string, content []byte) ([]models.Snippet, error) {
	ts := tree_sitter.NewParser()
	defer ts.Close()
	if err := ts.SetLanguage(tree_sitter.NewLanguage(tspython.Language())); err != nil {
		return nil, err
	}
	tree := ts.Parse(content, nil)
	defer tree.Close()
	root := tree.RootNode()
	if err := parser.CheckSyntax(relPath, root); err != nil {
		return nil, err
	}

	c := parser.NewCollector(relPath, content)
	for i := uint(0); i < root.NamedChildCount(); i++ {
		n := root.NamedChild(i)
		switch n.Kind() {
		case "import_statement", "import_from_statement", "future_import_statement":
			c.Statement(n, models.KindImport)
		case "expression_statement":
			if a := n.NamedChild(0); a != nil && n.NamedChildCount() == 1 && a.Kind() == "assignment" {
				c.Statement(n, models.KindGlobalVariable, assignedNames(a, content)...)
			}
		}
	}

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "function_definition":
			c.Definition(n, decorated(n), models.KindFunction, name(n, content), docstring(n, content))
		case "class_definition":
			c.Definition(n, decorated(n), models.KindClass, name(n, content), docstring(n, content))
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)

	return c.Snippets(), nil
}

// assignedNames returns the simple-name targets of a possibly chained
// assignment (a = b = 1). Annotation-only statements have no value and
// yield nothing.
func assignedNames(a *tree_sitter.Node, src []byte) []string {
	var names []string
	for a != nil && a.Kind() == "assignment" {
		right := a.ChildByFieldName("right")
		if right == nil {
			return nil
		}
		if left := a.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
			names = append(names, string(src[left.StartByte():left.EndByte()]))
		}
		a = right
	}
	return names
}

func decorated(def *tree_sitter.Node) *tree_sitter.Node {
	if parent := def.Parent(); parent != nil && parent.Kind() == "decorated_definition" {
		return parent
	}
	return def
}

func name(n *tree_sitter.Node, src []byte) string {
	if c := n.ChildByFieldName("name"); c != nil {
		return string(src[c.StartByte():c.EndByte()])
	}
	return ""
}

func docstring(def *tree_sitter.Node, src []byte) string {
	body := def.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Kind() != "expression_statement" || first.NamedChildCount() != 1 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return ""
	}
	return parser.CleanDoc(stringValue(string(src[str.StartByte():str.EndByte()])))
}

// stringValue strips the prefix and quotes of a Python string literal.
// Byte and f-strings are not docstrings.
func stringValue(lit string) string {
	i := 0
	for i < len(lit) && strings.ContainsRune("rRuUbBfF", rune(lit[i])) {
		i++
	}
	if strings.ContainsAny(lit[:i], "bBfF") {
		return ""
	}
	raw := strings.ContainsAny(lit[:i], "rR")
	lit = lit[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(lit) >= 2*len(q) && strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) {
			lit = lit[len(q) : len(lit)-len(q)]
			break
		}
	}
	if raw {
		return lit
	}
	return unescape(lit)
}

var escapes = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\"`, `"`, `\'`, `'`, "\\\n", "")

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return escapes.Replace(s)
}

var _ parser.Parser = (*PyParser)(nil)
