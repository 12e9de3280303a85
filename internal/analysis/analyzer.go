package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/qscan/internal/parser"
)

const (
	SuggestComplexity   = "Consider breaking down complex functions into smaller ones"
	SuggestNesting      = "Reduce nesting depth by extracting functions or using early returns"
	SuggestLongFunction = "Consider breaking long functions into smaller, focused functions"
	SuggestFunctionDocs = "Add docstrings to functions for better documentation"
	SuggestClassDocs    = "Add docstrings to classes for better documentation"
)

// Thresholds bound the metrics before an issue is raised
type Thresholds struct {
	CyclomaticComplexity int     `yaml:"cyclomatic_complexity,omitempty"`
	NestingDepth         int     `yaml:"nesting_depth,omitempty"`
	FunctionLines        float64 `yaml:"function_lines,omitempty"`
	FunctionDocCoverage  float64 `yaml:"function_doc_coverage,omitempty"`
	ClassDocCoverage     float64 `yaml:"class_doc_coverage,omitempty"`
}

// DefaultThresholds returns the standard limits
func DefaultThresholds() Thresholds {
	return Thresholds{
		CyclomaticComplexity: 10,
		NestingDepth:         4,
		FunctionLines:        50,
		FunctionDocCoverage:  50,
		ClassDocCoverage:     70,
	}
}

// Analyzer runs every analysis over one file
type Analyzer struct {
	parser     *parser.Parser
	thresholds Thresholds
}

// NewAnalyzer creates an analyzer with the given limits. Every field is
// used as is, so a zero doc coverage limit never raises an issue; start
// from DefaultThresholds to change only some limits.
func NewAnalyzer(thresholds Thresholds) *Analyzer {
	return &Analyzer{
		parser:     parser.NewParser(),
		thresholds: thresholds,
	}
}

// Thresholds returns the limits in effect
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// ReadSource reads a file as UTF-8 text
func ReadSource(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: not valid UTF-8", filePath)
	}
	return string(data), nil
}

// AnalyzeFile reads and analyzes one file. Read failures become an error
// issue on the result; the returned error is only ever a context error.
func (a *Analyzer) AnalyzeFile(ctx context.Context, filePath string, modules *ModuleSet) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := ReadSource(filePath)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("cannot read file")
		return &Result{
			FilePath:    filePath,
			Issues:      []Issue{newReadErrorIssue(err)},
			Suggestions: []string{},
		}, nil
	}

	return a.AnalyzeContent(ctx, filePath, content, modules)
}

// AnalyzeContent analyzes already loaded source text
func (a *Analyzer) AnalyzeContent(ctx context.Context, filePath, content string, modules *ModuleSet) (*Result, error) {
	tree, err := a.parse(ctx, filePath, content)
	if err != nil {
		return nil, err
	}

	var (
		issues      []Issue
		suggestions suggestionList
		t           = a.thresholds
	)

	complexity := AnalyzeComplexity(tree, content)

	if complexity.CyclomaticComplexity > t.CyclomaticComplexity {
		issues = append(issues, newComplexityIssue(SeverityWarning,
			fmt.Sprintf("High cyclomatic complexity: %d", complexity.CyclomaticComplexity),
			float64(t.CyclomaticComplexity)))
		suggestions.add(SuggestComplexity)
	}

	if complexity.MaxNestingDepth > t.NestingDepth {
		issues = append(issues, newComplexityIssue(SeverityWarning,
			fmt.Sprintf("Deep nesting detected: %d levels", complexity.MaxNestingDepth),
			float64(t.NestingDepth)))
		suggestions.add(SuggestNesting)
	}

	if complexity.AvgFunctionLength > t.FunctionLines {
		issues = append(issues, newComplexityIssue(SeverityInfo,
			fmt.Sprintf("Long functions detected: avg %.1f lines", complexity.AvgFunctionLength),
			t.FunctionLines))
		suggestions.add(SuggestLongFunction)
	}

	issues = append(issues, ScanSecurity(content)...)

	// coverage is 0 when there is nothing to document, so these fire for
	// files without functions or classes as well
	docs := AnalyzeDocumentation(tree)

	if docs.FunctionCoverage < t.FunctionDocCoverage {
		issues = append(issues, newDocumentationIssue(
			fmt.Sprintf("Low function documentation coverage: %.1f%%", docs.FunctionCoverage)))
		suggestions.add(SuggestFunctionDocs)
	}

	if docs.ClassCoverage < t.ClassDocCoverage {
		issues = append(issues, newDocumentationIssue(
			fmt.Sprintf("Low class documentation coverage: %.1f%%", docs.ClassCoverage)))
		suggestions.add(SuggestClassDocs)
	}

	// the module set is shared across the scan, so nothing is merged
	// into it once the scan has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deps := ExtractDependencies(tree, modules)

	if issues == nil {
		issues = []Issue{}
	}

	return &Result{
		FilePath: filePath,
		Issues:   issues,
		Metrics: Metrics{
			Complexity:    &complexity,
			Documentation: &docs,
			Dependencies:  &deps,
		},
		Suggestions: suggestions.items(),
	}, nil
}

// Complexity returns only the complexity metrics of source text
func (a *Analyzer) Complexity(ctx context.Context, filePath, content string) (ComplexityMetrics, error) {
	tree, err := a.parse(ctx, filePath, content)
	if err != nil {
		return ComplexityMetrics{}, err
	}
	return AnalyzeComplexity(tree, content), nil
}

// parse returns a nil tree for malformed source; only context errors are
// returned
func (a *Analyzer) parse(ctx context.Context, filePath, content string) (*parser.SyntaxTree, error) {
	tree, err := a.parser.Parse(ctx, filePath, []byte(content))
	if err == nil {
		return tree, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, parser.ErrSyntax) {
		log.Debug().Err(err).Str("file", filePath).Msg("parse failed, using zero metrics")
	} else {
		log.Warn().Err(err).Str("file", filePath).Msg("parse failed, using zero metrics")
	}
	return nil, nil
}

// suggestionList keeps suggestions unique in first-seen order
type suggestionList struct {
	list []string
}

func (s *suggestionList) add(suggestion string) {
	for _, existing := range s.list {
		if existing == suggestion {
			return
		}
	}
	s.list = append(s.list, suggestion)
}

func (s *suggestionList) items() []string {
	if s.list == nil {
		return []string{}
	}
	return s.list
}
