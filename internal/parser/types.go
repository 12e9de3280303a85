package parser

// Language represents a programming language
type Language string

const (
	LanguagePython  Language = "python"
	LanguageUnknown Language = "unknown"
)

// Kind tags a syntax tree node with the construct it represents
type Kind string

const (
	KindModule     Kind = "module"
	KindFunction   Kind = "function"
	KindClass      Kind = "class"
	KindIf         Kind = "if"
	KindWhile      Kind = "while"
	KindFor        Kind = "for"
	KindTry        Kind = "try"
	KindExcept     Kind = "except"
	KindImport     Kind = "import"
	KindImportFrom Kind = "import_from"
	KindString     Kind = "string" // standalone string literal statement
	KindOther      Kind = "other"
)

// Node is one node of a SyntaxTree.
//
// Function and class nodes hold their body statements as Children, in
// source order. Import nodes list the referenced modules in Modules.
type Node struct {
	Kind      Kind
	StartLine int
	EndLine   int    // 0 when the end line could not be resolved
	Name      string // function or class name
	Async     bool   // async def
	Modules   []string
	Text      string // literal content of a KindString node
	Children  []*Node
}

// SyntaxTree is the parsed form of one source file
type SyntaxTree struct {
	Path string
	Root *Node
}

// Walk calls fn for every node in depth-first pre-order
func (t *SyntaxTree) Walk(fn func(*Node)) {
	if t == nil || t.Root == nil {
		return
	}
	walkNode(t.Root, fn)
}

func walkNode(n *Node, fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		walkNode(child, fn)
	}
}

// FirstStatement returns the first body statement of a node, or nil
func (n *Node) FirstStatement() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}
