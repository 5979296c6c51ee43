package tsparser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tstypes "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/parser"
)

type TSParser struct{}

func New() *TSParser { return &TSParser{} }

func (p *TSParser) Extensions() []string { return []string{".ts", ".tsx"} }

func (p *TSParser) ParseFile(relPath string, code []byte) ([]models.Snippet, error) {
	ts := tree_sitter.NewParser()
	defer ts.Close()

	lang := tree_sitter.NewLanguage(tstypes.LanguageTypescript())
	if strings.HasSuffix(relPath, ".tsx") {
		lang = tree_sitter.NewLanguage(tstypes.LanguageTSX())
	}
	if err := ts.SetLanguage(lang); err != nil {
		return nil, err
	}

	tree := ts.Parse(code, nil)
	defer tree.Close()
	root := tree.RootNode()
	if err := parser.CheckSyntax(relPath, root); err != nil {
		return nil, err
	}

	c := parser.NewCollector(relPath, code)
	for i := uint(0); i < root.NamedChildCount(); i++ {
		n := root.NamedChild(i)
		stmt := n
		if n.Kind() == "export_statement" {
			if d := n.ChildByFieldName("declaration"); d != nil {
				n = d
			}
		}
		switch n.Kind() {
		case "import_statement":
			c.Statement(stmt, models.KindImport)
		case "lexical_declaration", "variable_declaration":
			c.Statement(stmt, models.KindGlobalVariable, declaredNames(n, code)...)
		}
	}

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration", "method_definition":
			c.Definition(n, n, models.KindFunction, childIdentifier(n, code), jsDoc(n, code))
		case "class_declaration", "abstract_class_declaration":
			c.Definition(n, n, models.KindClass, childIdentifier(n, code), jsDoc(n, code))
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)

	return c.Snippets(), nil
}

func childIdentifier(n *tree_sitter.Node, code []byte) string {
	// Prefer named field `name` if available
	if c := n.ChildByFieldName("name"); c != nil {
		return string(code[c.StartByte():c.EndByte()])
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		kind := c.Kind()
		if kind == "identifier" || kind == "property_identifier" || kind == "type_identifier" {
			return string(code[c.StartByte():c.EndByte()])
		}
	}
	return ""
}

// declaredNames returns the identifiers bound by a const/let/var
// declaration. Destructuring patterns are skipped.
func declaredNames(n *tree_sitter.Node, code []byte) []string {
	var names []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		d := n.NamedChild(i)
		if d.Kind() != "variable_declarator" {
			continue
		}
		if id := d.ChildByFieldName("name"); id != nil && id.Kind() == "identifier" {
			names = append(names, string(code[id.StartByte():id.EndByte()]))
		}
	}
	return names
}

// jsDoc returns the cleaned /** */ comment ending on the line above n, or
// above its export wrapper.
func jsDoc(n *tree_sitter.Node, code []byte) string {
	target := n
	if parent := n.Parent(); parent != nil && parent.Kind() == "export_statement" {
		target = parent
	}
	prev := target.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}
	if prev.EndPosition().Row+1 < target.StartPosition().Row {
		return ""
	}
	return parser.CleanJSDoc(string(code[prev.StartByte():prev.EndByte()]))
}

var _ parser.Parser = (*TSParser)(nil)
