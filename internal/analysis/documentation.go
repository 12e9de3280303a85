package analysis

import (
	"strings"

	"github.com/QTest-hq/qscan/internal/parser"
)

// AnalyzeDocumentation counts functions and classes with docstrings. Async
// functions are not counted. A nil tree (parse failure) yields all-zero
// metrics.
func AnalyzeDocumentation(tree *parser.SyntaxTree) DocumentationMetrics {
	var metrics DocumentationMetrics

	tree.Walk(func(n *parser.Node) {
		switch n.Kind {
		case parser.KindFunction:
			if n.Async {
				return
			}
			metrics.TotalFunctions++
			if hasDocstring(n) {
				metrics.DocumentedFunctions++
			}
		case parser.KindClass:
			metrics.TotalClasses++
			if hasDocstring(n) {
				metrics.DocumentedClasses++
			}
		}
	})

	metrics.FunctionCoverage = coverage(metrics.DocumentedFunctions, metrics.TotalFunctions)
	metrics.ClassCoverage = coverage(metrics.DocumentedClasses, metrics.TotalClasses)
	return metrics
}

// hasDocstring reports whether the first body statement is a non-blank
// string literal
func hasDocstring(n *parser.Node) bool {
	first := n.FirstStatement()
	return first != nil && first.Kind == parser.KindString && strings.TrimSpace(first.Text) != ""
}

func coverage(documented, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(documented) / float64(total) * 100
}
