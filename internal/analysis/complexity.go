package analysis

import (
	"strings"

	"github.com/QTest-hq/qscan/internal/parser"
)

// AnalyzeComplexity computes complexity metrics for a parsed file. A nil
// tree (parse failure) yields all-zero metrics.
func AnalyzeComplexity(tree *parser.SyntaxTree, content string) ComplexityMetrics {
	if tree == nil || tree.Root == nil {
		return ComplexityMetrics{}
	}

	v := &complexityVisitor{}
	v.visit(tree.Root, 0)

	metrics := ComplexityMetrics{
		CyclomaticComplexity: v.complexity,
		LinesOfCode:          CountLinesOfCode(content),
		FunctionCount:        v.functions,
		ClassCount:           v.classes,
		MaxNestingDepth:      v.maxDepth,
	}

	if len(v.lengths) > 0 {
		total := 0
		for _, l := range v.lengths {
			total += l
		}
		metrics.AvgFunctionLength = float64(total) / float64(len(v.lengths))
	}

	return metrics
}

// CountLinesOfCode counts lines that are neither blank nor comments
func CountLinesOfCode(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			count++
		}
	}
	return count
}

// complexityVisitor accumulates counts for one traversal. Depth travels
// with the recursion, so a visitor holds no state shared between files.
type complexityVisitor struct {
	complexity int
	maxDepth   int
	functions  int
	classes    int
	lengths    []int
}

func (v *complexityVisitor) visit(n *parser.Node, depth int) {
	switch n.Kind {
	case parser.KindFunction:
		v.functions++
		if n.EndLine > 0 {
			v.lengths = append(v.lengths, n.EndLine-n.StartLine+1)
		}
		v.nested(n, depth)

	case parser.KindClass:
		v.classes++
		v.nested(n, depth)

	case parser.KindIf, parser.KindWhile, parser.KindFor, parser.KindTry:
		v.complexity++
		v.nested(n, depth)

	case parser.KindExcept:
		// handlers branch but do not open a nesting level
		v.complexity++
		v.children(n, depth)

	default:
		v.children(n, depth)
	}
}

func (v *complexityVisitor) nested(n *parser.Node, depth int) {
	depth++
	if depth > v.maxDepth {
		v.maxDepth = depth
	}
	v.children(n, depth)
}

func (v *complexityVisitor) children(n *parser.Node, depth int) {
	for _, child := range n.Children {
		v.visit(child, depth)
	}
}
