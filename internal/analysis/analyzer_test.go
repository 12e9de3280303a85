package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioSource = `import os


def process(items):
    for item in items:
        if item:
            if item > 1:
                os.system("rm -rf /tmp/x")
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSeverity_Level(t *testing.T) {
	assert.Equal(t, 1, SeverityInfo.Level())
	assert.Equal(t, 2, SeverityWarning.Level())
	assert.Equal(t, 3, SeverityError.Level())
	assert.Greater(t, SeverityHigh.Level(), SeverityError.Level())

	for _, min := range []Severity{SeverityInfo, SeverityWarning, SeverityError} {
		assert.True(t, SeverityHigh.AtLeast(min), "high should satisfy %s", min)
	}
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"info", SeverityInfo, false},
		{"WARNING", SeverityWarning, false},
		{" error ", SeverityError, false},
		{"high", "", true},
		{"", "", true},
		{"critical", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSeverity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzer_AnalyzeFile_Scenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scenario.py", scenarioSource)
	a := NewAnalyzer(DefaultThresholds())

	result, err := a.AnalyzeFile(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, result.FilePath)
	require.NotNil(t, result.Metrics.Complexity)
	assert.Equal(t, 3, result.Metrics.Complexity.CyclomaticComplexity)
	assert.Equal(t, 4, result.Metrics.Complexity.MaxNestingDepth)

	require.Len(t, result.Issues, 3)
	assert.Equal(t, IssueSecurity, result.Issues[0].Type)
	assert.Equal(t, 8, result.Issues[0].Line)
	assert.Contains(t, result.Issues[0].Code, "os.system")
	assert.Equal(t, IssueDocumentation, result.Issues[1].Type)
	assert.Equal(t, "Low function documentation coverage: 0.0%", result.Issues[1].Message)
	assert.Equal(t, IssueDocumentation, result.Issues[2].Type)
	assert.Equal(t, "Low class documentation coverage: 0.0%", result.Issues[2].Message)

	assert.Equal(t, []string{SuggestFunctionDocs, SuggestClassDocs}, result.Suggestions)
	assert.Len(t, result.FilterIssues(SeverityInfo), 3)

	require.NotNil(t, result.Metrics.Dependencies)
	assert.Equal(t, []string{"os"}, result.Metrics.Dependencies.Imports)
}

func TestAnalyzer_AnalyzeFile_ReadFailure(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds())
	missing := filepath.Join(t.TempDir(), "missing.py")

	result, err := a.AnalyzeFile(context.Background(), missing, nil)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueError, result.Issues[0].Type)
	assert.Equal(t, SeverityError, result.Issues[0].Severity)
	assert.True(t, strings.HasPrefix(result.Issues[0].Message, "Cannot read file: "))
	assert.Nil(t, result.Metrics.Complexity)
	assert.Nil(t, result.Metrics.Documentation)
	assert.Nil(t, result.Metrics.Dependencies)
	assert.Empty(t, result.Suggestions)
}

func TestAnalyzer_AnalyzeFile_InvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "latin1.py", "name = '\xe9t\xe9'\n")
	a := NewAnalyzer(DefaultThresholds())

	result, err := a.AnalyzeFile(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueError, result.Issues[0].Type)
}

func TestAnalyzer_AnalyzeContent_HighComplexity(t *testing.T) {
	var b strings.Builder
	b.WriteString("def branchy(x):\n    \"\"\"Many branches.\"\"\"\n")
	for i := 0; i < 11; i++ {
		b.WriteString("    if x:\n        pass\n")
	}
	b.WriteString("\n\nclass Holder:\n    \"\"\"Holds.\"\"\"\n")

	a := NewAnalyzer(DefaultThresholds())
	result, err := a.AnalyzeContent(context.Background(), "branchy.py", b.String(), nil)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, IssueComplexity, issue.Type)
	assert.Equal(t, SeverityWarning, issue.Severity)
	assert.Equal(t, "High cyclomatic complexity: 11", issue.Message)
	require.NotNil(t, issue.Threshold)
	assert.Equal(t, 10.0, *issue.Threshold)
	assert.Equal(t, []string{SuggestComplexity}, result.Suggestions)
}

func TestAnalyzer_AnalyzeContent_DeepNesting(t *testing.T) {
	content := `def deep(a):
    """Deep."""
    if a:
        if a:
            if a:
                if a:
                    if a:
                        return a


class Holder:
    """Holds."""
`
	a := NewAnalyzer(DefaultThresholds())
	result, err := a.AnalyzeContent(context.Background(), "deep.py", content, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Metrics.Complexity.MaxNestingDepth)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Deep nesting detected: 6 levels", result.Issues[0].Message)
	assert.Equal(t, SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, []string{SuggestNesting}, result.Suggestions)
}

func TestAnalyzer_AnalyzeContent_LongFunction(t *testing.T) {
	var b strings.Builder
	b.WriteString("def long():\n    \"\"\"Long.\"\"\"\n")
	for i := 0; i < 58; i++ {
		b.WriteString("    x = 1\n")
	}
	b.WriteString("\n\nclass Holder:\n    \"\"\"Holds.\"\"\"\n")

	a := NewAnalyzer(DefaultThresholds())
	result, err := a.AnalyzeContent(context.Background(), "long.py", b.String(), nil)
	require.NoError(t, err)

	assert.Equal(t, 60.0, result.Metrics.Complexity.AvgFunctionLength)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, SeverityInfo, result.Issues[0].Severity)
	assert.Equal(t, "Long functions detected: avg 60.0 lines", result.Issues[0].Message)
	assert.Equal(t, []string{SuggestLongFunction}, result.Suggestions)
}

func TestAnalyzer_AnalyzeContent_CleanFile(t *testing.T) {
	content := `"""Module docs."""


class Service:
    """A service."""

    def run(self):
        """Run it."""
        return True
`
	a := NewAnalyzer(DefaultThresholds())
	result, err := a.AnalyzeContent(context.Background(), "clean.py", content, nil)
	require.NoError(t, err)

	assert.NotNil(t, result.Issues)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Suggestions)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, 100.0, result.Metrics.Documentation.FunctionCoverage)
	assert.Equal(t, 100.0, result.Metrics.Documentation.ClassCoverage)
}

func TestAnalyzer_AnalyzeContent_ParseFailure(t *testing.T) {
	content := "def broken(:\n    eval(x)\n"
	a := NewAnalyzer(DefaultThresholds())

	result, err := a.AnalyzeContent(context.Background(), "broken.py", content, nil)
	require.NoError(t, err)

	assert.Equal(t, ComplexityMetrics{}, *result.Metrics.Complexity)
	assert.Equal(t, DocumentationMetrics{}, *result.Metrics.Documentation)
	assert.Empty(t, result.Metrics.Dependencies.Imports)

	// the lexical scan still runs
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, IssueSecurity, result.Issues[0].Type)
}

func TestAnalyzer_AnalyzeContent_CustomThresholds(t *testing.T) {
	limits := DefaultThresholds()
	limits.CyclomaticComplexity = 2
	a := NewAnalyzer(limits)
	assert.Equal(t, 2, a.Thresholds().CyclomaticComplexity)
	assert.Equal(t, 4, a.Thresholds().NestingDepth)

	result, err := a.AnalyzeContent(context.Background(), "scenario.py", scenarioSource, nil)
	require.NoError(t, err)

	assert.Equal(t, IssueComplexity, result.Issues[0].Type)
	assert.Equal(t, "High cyclomatic complexity: 3", result.Issues[0].Message)
	assert.Equal(t, SuggestComplexity, result.Suggestions[0])
}

func TestAnalyzer_AnalyzeContent_ZeroDocCoverage(t *testing.T) {
	limits := DefaultThresholds()
	limits.FunctionDocCoverage = 0
	limits.ClassDocCoverage = 0
	a := NewAnalyzer(limits)
	assert.Equal(t, 0.0, a.Thresholds().FunctionDocCoverage)

	result, err := a.AnalyzeContent(context.Background(), "scenario.py", scenarioSource, nil)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueSecurity, result.Issues[0].Type)
	assert.Empty(t, result.Suggestions)
}

func TestAnalyzer_AnalyzeContent_Idempotent(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds())

	first, err := a.AnalyzeContent(context.Background(), "scenario.py", scenarioSource, nil)
	require.NoError(t, err)
	second, err := a.AnalyzeContent(context.Background(), "scenario.py", scenarioSource, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.Suggestions, second.Suggestions)
}

func TestAnalyzer_AnalyzeContent_SharedModules(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds())
	modules := NewModuleSet()

	first, err := a.AnalyzeContent(context.Background(), "a.py", "import os\n", modules)
	require.NoError(t, err)
	second, err := a.AnalyzeContent(context.Background(), "b.py", "import sys\n", modules)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Metrics.Dependencies.TotalModules)
	assert.Equal(t, 2, second.Metrics.Dependencies.TotalModules)
}

func TestAnalyzer_AnalyzeFile_Cancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scenario.py", scenarioSource)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	modules := NewModuleSet()
	result, err := NewAnalyzer(DefaultThresholds()).AnalyzeFile(ctx, path, modules)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, modules.Len())
}

func TestAnalyzer_Complexity(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds())

	m, err := a.Complexity(context.Background(), "scenario.py", scenarioSource)
	require.NoError(t, err)
	assert.Equal(t, 3, m.CyclomaticComplexity)

	m, err = a.Complexity(context.Background(), "broken.py", "def broken(:\n")
	require.NoError(t, err)
	assert.Equal(t, ComplexityMetrics{}, m)
}

func TestResult_FilterIssues(t *testing.T) {
	r := &Result{Issues: []Issue{
		newDocumentationIssue("info"),
		newComplexityIssue(SeverityWarning, "warning", 10),
		newReadErrorIssue(os.ErrPermission),
		newSecurityIssue(3, "security", "eval(x)"),
	}}

	assert.Len(t, r.FilterIssues(SeverityInfo), 4)
	assert.Len(t, r.FilterIssues(SeverityWarning), 3)
	assert.Len(t, r.FilterIssues(SeverityError), 2)
}
