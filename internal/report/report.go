package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/QTest-hq/qscan/internal/analysis"
)

const (
	ToolName    = "QScan Static Analyzer"
	ToolVersion = "1.0.0"

	// DefaultHTMLFile is written when an HTML report has no explicit target
	DefaultHTMLFile = "analysis_report.html"
)

// ErrUnknownFormat is returned for an unsupported output format
var ErrUnknownFormat = errors.New("unsupported format")

// Format represents the output format for analysis reports
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want text, json or html)", ErrUnknownFormat, name)
	}
}

// Renderer generates analysis reports
type Renderer struct {
	Tool    string
	Version string

	// Optional run metadata, included in JSON and HTML output when set
	RunID  string
	Commit string
	Branch string

	// Now returns the report timestamp
	Now func() time.Time
}

// NewRenderer creates a renderer with the default tool identity
func NewRenderer() *Renderer {
	return &Renderer{
		Tool:    ToolName,
		Version: ToolVersion,
		Now:     time.Now,
	}
}

// Metadata describes the run that produced a report
type Metadata struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
	MinSeverity string `json:"min_severity"`
	RunID       string `json:"run_id,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Branch      string `json:"branch,omitempty"`
}

// Summary holds report-wide counts. TotalIssues counts only issues that
// pass the severity filter.
type Summary struct {
	TotalFiles       int `json:"total_files"`
	TotalIssues      int `json:"total_issues"`
	TotalSuggestions int `json:"total_suggestions"`
}

// FileReport is one file's entry in a report
type FileReport struct {
	Path        string           `json:"path"`
	Issues      []analysis.Issue `json:"issues"`
	Metrics     analysis.Metrics `json:"metrics"`
	Suggestions []string         `json:"suggestions"`
}

// Document is the structured form of a report
type Document struct {
	Metadata Metadata     `json:"metadata"`
	Summary  Summary      `json:"summary"`
	Files    []FileReport `json:"files"`
}

// Build assembles the report document. Issues are filtered by min; metrics
// and suggestions are always carried in full.
func (r *Renderer) Build(results []*analysis.Result, min analysis.Severity) *Document {
	doc := &Document{
		Metadata: Metadata{
			Tool:        r.Tool,
			Version:     r.Version,
			Timestamp:   r.now().Format(time.RFC3339),
			MinSeverity: string(min),
			RunID:       r.RunID,
			Commit:      r.Commit,
			Branch:      r.Branch,
		},
		Files: make([]FileReport, 0, len(results)),
	}

	for _, result := range results {
		issues := result.FilterIssues(min)
		suggestions := result.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}

		doc.Files = append(doc.Files, FileReport{
			Path:        result.FilePath,
			Issues:      issues,
			Metrics:     result.Metrics,
			Suggestions: suggestions,
		})
		doc.Summary.TotalIssues += len(issues)
		doc.Summary.TotalSuggestions += len(result.Suggestions)
	}
	doc.Summary.TotalFiles = len(results)

	return doc
}

// Render writes a report in the given format
func (r *Renderer) Render(w io.Writer, results []*analysis.Result, format Format, min analysis.Severity) error {
	doc := r.Build(results, min)

	switch format {
	case FormatText:
		return renderText(w, doc)
	case FormatJSON:
		return renderJSON(w, doc)
	case FormatHTML:
		return renderHTML(w, doc)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteFile renders a report to path, creating parent directories. Nothing
// is left at path when rendering fails.
func (r *Renderer) WriteFile(path string, results []*analysis.Result, format Format, min analysis.Severity) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, results, format, min); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func renderJSON(w io.Writer, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// UniqueSuggestions merges the suggestions of all files, keeping the
// first occurrence of each
func UniqueSuggestions(files []FileReport) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, f := range files {
		for _, s := range f.Suggestions {
			if !seen[s] {
				seen[s] = true
				unique = append(unique, s)
			}
		}
	}
	return unique
}
