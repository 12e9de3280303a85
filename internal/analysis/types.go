package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSeverity is returned when a severity name is not recognized
var ErrInvalidSeverity = errors.New("invalid severity")

// Severity classifies an issue
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityHigh    Severity = "high" // security findings
)

// Level returns the ordinal used for threshold comparison. High sorts
// above error so security findings pass every threshold.
func (s Severity) Level() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	case SeverityHigh:
		return 4
	default:
		return 1
	}
}

// AtLeast reports whether s meets the minimum severity
func (s Severity) AtLeast(min Severity) bool {
	return s.Level() >= min.Level()
}

// ParseSeverity parses a threshold name (info, warning or error)
func ParseSeverity(name string) (Severity, error) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(name))); s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q (want info, warning or error)", ErrInvalidSeverity, name)
	}
}

// IssueType discriminates the issue variants
type IssueType string

const (
	IssueComplexity    IssueType = "complexity"
	IssueSecurity      IssueType = "security"
	IssueDocumentation IssueType = "documentation"
	IssueError         IssueType = "error" // file could not be read
)

// Issue is a single finding for a file. Issues are built by the
// constructors below and never modified afterwards.
type Issue struct {
	Type      IssueType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Line      int       `json:"line,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	Code      string    `json:"code,omitempty"`
}

func newComplexityIssue(severity Severity, message string, threshold float64) Issue {
	return Issue{
		Type:      IssueComplexity,
		Severity:  severity,
		Message:   message,
		Threshold: &threshold,
	}
}

func newSecurityIssue(line int, message, code string) Issue {
	return Issue{
		Type:     IssueSecurity,
		Severity: SeverityHigh,
		Message:  message,
		Line:     line,
		Code:     code,
	}
}

func newDocumentationIssue(message string) Issue {
	return Issue{
		Type:     IssueDocumentation,
		Severity: SeverityInfo,
		Message:  message,
	}
}

func newReadErrorIssue(err error) Issue {
	return Issue{
		Type:     IssueError,
		Severity: SeverityError,
		Message:  fmt.Sprintf("Cannot read file: %v", err),
	}
}

// ComplexityMetrics holds per-file complexity figures
type ComplexityMetrics struct {
	CyclomaticComplexity int     `json:"cyclomatic_complexity"`
	LinesOfCode          int     `json:"lines_of_code"`
	FunctionCount        int     `json:"function_count"`
	ClassCount           int     `json:"class_count"`
	MaxNestingDepth      int     `json:"max_nesting_depth"`
	AvgFunctionLength    float64 `json:"avg_function_length"`
}

// FileComplexity pairs a file with its complexity metrics. Err is set when
// the file could not be read.
type FileComplexity struct {
	Path    string
	Metrics ComplexityMetrics
	Err     error
}

// DocumentationMetrics holds per-file docstring coverage
type DocumentationMetrics struct {
	FunctionCoverage    float64 `json:"function_docstring_coverage"`
	ClassCoverage       float64 `json:"class_docstring_coverage"`
	TotalFunctions      int     `json:"total_functions"`
	TotalClasses        int     `json:"total_classes"`
	DocumentedFunctions int     `json:"documented_functions"`
	DocumentedClasses   int     `json:"documented_classes"`
}

// DependencyInfo lists the modules a file imports
type DependencyInfo struct {
	Imports      []string `json:"imports"`
	TotalModules int      `json:"total_modules"`
}

// Metrics groups the analyzer outputs. All fields are nil when the file
// could not be read.
type Metrics struct {
	Complexity    *ComplexityMetrics    `json:"complexity,omitempty"`
	Documentation *DocumentationMetrics `json:"documentation,omitempty"`
	Dependencies  *DependencyInfo       `json:"dependencies,omitempty"`
}

// Result is the analysis outcome for one file
type Result struct {
	FilePath    string   `json:"path"`
	Issues      []Issue  `json:"issues"`
	Metrics     Metrics  `json:"metrics"`
	Suggestions []string `json:"suggestions"`
}

// FilterIssues returns the issues at or above min, in order
func (r *Result) FilterIssues(min Severity) []Issue {
	filtered := make([]Issue, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if issue.Severity.AtLeast(min) {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}
