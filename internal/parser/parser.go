package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is returned when the source contains syntax errors
var ErrSyntax = errors.New("syntax error")

// Parser parses Python source code using tree-sitter.
//
// A tree-sitter parser is created per call, so one Parser may be shared by
// concurrent goroutines.
type Parser struct {
	lang *sitter.Language
}

// NewParser creates a new Python parser
func NewParser() *Parser {
	return &Parser{lang: python.GetLanguage()}
}

// Parse turns source content into a SyntaxTree. Malformed source yields
// an error wrapping ErrSyntax and no tree.
func (p *Parser) Parse(ctx context.Context, filePath string, content []byte) (*SyntaxTree, error) {
	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(p.lang)

	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%s: empty parse tree: %w", filePath, ErrSyntax)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%s: line %d: %w", filePath, firstErrorLine(root), ErrSyntax)
	}
	if line := legacyStatementLine(root); line > 0 {
		return nil, fmt.Errorf("%s: line %d: python 2 statement: %w", filePath, line, ErrSyntax)
	}

	c := &converter{source: content}
	return &SyntaxTree{
		Path: filePath,
		Root: c.convert(root),
	}, nil
}

// converter maps tree-sitter nodes onto SyntaxTree nodes
type converter struct {
	source []byte
}

func (c *converter) convert(n *sitter.Node) *Node {
	node := &Node{
		Kind:      kindOf(n.Type()),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   endLine(n),
	}

	switch n.Type() {
	case "function_definition", "class_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			node.Name = name.Content(c.source)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			node.Children = c.convertChildren(body)
			// trailing comments belong to the block but not to the statement
			if end := codeEndLine(body); end > 0 {
				node.EndLine = end
			}
		}
		node.Async = isAsync(n)
		return node

	case "for_statement":
		// async for is not a branch
		if isAsync(n) {
			node.Kind = KindOther
		}

	case "try_statement":
		// try with except* handlers is not a branch either
		if hasExceptGroup(n) {
			node.Kind = KindOther
		}

	case "import_statement":
		node.Modules = c.importModules(n)
		return node

	case "import_from_statement":
		if module := c.fromModule(n); module != "" {
			node.Modules = []string{module}
		}
		return node

	case "future_import_statement":
		node.Modules = []string{"__future__"}
		return node

	case "expression_statement":
		if n.NamedChildCount() == 1 {
			if text, ok := c.literalText(n.NamedChild(0)); ok {
				node.Kind = KindString
				node.Text = text
				return node
			}
		}

	case "if_statement":
		// elif and else clauses hang off the preceding elif, so that an
		// elif chain nests the way Python's own AST does.
		chain := node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "comment" {
				continue
			}
			converted := c.convert(child)
			chain.Children = append(chain.Children, converted)
			if child.Type() == "elif_clause" {
				chain = converted
			}
		}
		return node
	}

	node.Children = c.convertChildren(n)
	return node
}

func (c *converter) convertChildren(n *sitter.Node) []*Node {
	children := make([]*Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		children = append(children, c.convert(child))
	}
	return children
}

// importModules handles 'import a.b' and 'import a.b as c'
func (c *converter) importModules(n *sitter.Node) []string {
	var modules []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			modules = append(modules, child.Content(c.source))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				modules = append(modules, name.Content(c.source))
			}
		}
	}
	return modules
}

// fromModule returns X for 'from X import Y'. Purely relative imports
// ('from . import y') have no module and return "".
func (c *converter) fromModule(n *sitter.Node) string {
	module := n.ChildByFieldName("module_name")
	if module == nil {
		return ""
	}
	switch module.Type() {
	case "dotted_name":
		return module.Content(c.source)
	case "relative_import":
		for i := 0; i < int(module.NamedChildCount()); i++ {
			if child := module.NamedChild(i); child.Type() == "dotted_name" {
				return child.Content(c.source)
			}
		}
	}
	return ""
}

// literalText reports whether n is a plain string literal (no f- or
// b-prefix) and returns its content without prefix and quotes.
func (c *converter) literalText(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string":
		return unquote(n.Content(c.source))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "comment" {
				continue
			}
			if child.Type() != "string" {
				return "", false
			}
			text, ok := unquote(child.Content(c.source))
			if !ok {
				return "", false
			}
			b.WriteString(text)
		}
		return b.String(), true
	}
	return "", false
}

func unquote(raw string) (string, bool) {
	quote := strings.IndexAny(raw, `"'`)
	if quote < 0 {
		return "", false
	}
	prefix := strings.ToLower(raw[:quote])
	if strings.ContainsAny(prefix, "fbt") {
		return "", false
	}

	body := raw[quote:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			return body[len(q) : len(body)-len(q)], true
		}
	}
	return "", false
}

func kindOf(nodeType string) Kind {
	switch nodeType {
	case "module":
		return KindModule
	case "function_definition":
		return KindFunction
	case "class_definition":
		return KindClass
	case "if_statement", "elif_clause":
		return KindIf
	case "while_statement":
		return KindWhile
	case "for_statement":
		return KindFor
	case "try_statement":
		return KindTry
	case "except_clause", "except_group_clause":
		return KindExcept
	case "import_statement":
		return KindImport
	case "import_from_statement", "future_import_statement":
		return KindImportFrom
	default:
		return KindOther
	}
}

// isAsync reports whether a definition or loop starts with the async keyword
func isAsync(n *sitter.Node) bool {
	return n.ChildCount() > 0 && n.Child(0).Type() == "async"
}

func hasExceptGroup(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "except_group_clause" {
			return true
		}
		if child.Type() == "except_clause" && child.ChildCount() > 1 && child.Child(1).Type() == "*" {
			return true
		}
	}
	return false
}

// codeEndLine returns the end line of the last token in n that is not
// a comment, or 0 when n holds only comments
func codeEndLine(n *sitter.Node) int {
	for n.ChildCount() > 0 {
		var last *sitter.Node
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child.Type() != "comment" {
				last = child
				break
			}
		}
		if last == nil {
			return 0
		}
		n = last
	}
	return endLine(n)
}

// endLine converts the tree-sitter end point to a 1-indexed line. A node
// ending at column 0 ends on the previous line.
func endLine(n *sitter.Node) int {
	start, end := n.StartPoint(), n.EndPoint()
	if end.Column == 0 && end.Row > start.Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

// firstErrorLine finds the first ERROR or MISSING node
func firstErrorLine(root *sitter.Node) int {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	line := 0
	walkTree(cursor, func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			line = int(n.StartPoint().Row) + 1
			return false
		}
		return true
	})
	return line
}

// legacyStatementLine finds the first print or exec statement, which the
// grammar accepts but Python 3 rejects. It returns 0 when there is none.
func legacyStatementLine(root *sitter.Node) int {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	line := 0
	walkTree(cursor, func(n *sitter.Node) bool {
		switch n.Type() {
		case "print_statement", "exec_statement":
			line = int(n.StartPoint().Row) + 1
			return false
		}
		return true
	})
	return line
}

// walkTree walks the tree in pre-order until fn returns false
func walkTree(cursor *sitter.TreeCursor, fn func(*sitter.Node) bool) {
	for {
		if !fn(cursor.CurrentNode()) {
			return
		}

		if cursor.GoToFirstChild() {
			continue
		}

		for {
			if cursor.GoToNextSibling() {
				break
			}
			if !cursor.GoToParent() {
				return
			}
		}
	}
}

// DetectLanguage detects language from file extension
func DetectLanguage(path string) Language {
	if filepath.Ext(path) == ".py" {
		return LanguagePython
	}
	return LanguageUnknown
}
