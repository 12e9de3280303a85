package report

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"

	"github.com/QTest-hq/qscan/internal/analysis"
)

type htmlReportData struct {
	Title       string
	GeneratedAt string
	Metadata    Metadata
	Summary     Summary
	Files       []FileReport
	Suggestions []string
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"base":          filepath.Base,
	"severityClass": severityClass,
	"coverage":      formatCoverage,
}).Parse(htmlTemplate))

func renderHTML(w io.Writer, doc *Document) error {
	data := htmlReportData{
		Title:       doc.Metadata.Tool + " Report",
		GeneratedAt: doc.Metadata.Timestamp,
		Metadata:    doc.Metadata,
		Summary:     doc.Summary,
		Files:       doc.Files,
		Suggestions: UniqueSuggestions(doc.Files),
	}

	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// severityClass returns the CSS class for an issue. Security findings
// share the error styling.
func severityClass(s analysis.Severity) string {
	switch s {
	case analysis.SeverityHigh, analysis.SeverityError:
		return "error"
	case analysis.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

func formatCoverage(m *analysis.DocumentationMetrics) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", m.FunctionCoverage)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            margin: 20px;
        }
        .header {
            background: #2196F3;
            color: white;
            padding: 20px;
            border-radius: 6px;
        }
        .summary {
            background: #f5f5f5;
            padding: 15px;
            margin: 20px 0;
            border-radius: 6px;
        }
        .file {
            border: 1px solid #ddd;
            margin: 10px 0;
            padding: 15px;
            border-radius: 6px;
        }
        .file .metrics {
            color: #666;
            font-size: 0.9em;
        }
        .issue {
            margin: 5px 0;
            padding: 5px 10px;
        }
        .issue .line {
            font-family: monospace;
            color: #666;
        }
        .error {
            background: #ffebee;
            border-left: 4px solid #f44336;
        }
        .warning {
            background: #fff3e0;
            border-left: 4px solid #ff9800;
        }
        .info {
            background: #e3f2fd;
            border-left: 4px solid #2196f3;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        <p>Generated on {{.GeneratedAt}}</p>
        {{- if .Metadata.Commit}}
        <p>Commit {{.Metadata.Commit}}{{if .Metadata.Branch}} on {{.Metadata.Branch}}{{end}}</p>
        {{- end}}
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p>Total files analyzed: {{.Summary.TotalFiles}}</p>
        <p>Total issues: {{.Summary.TotalIssues}}</p>
        <p>Minimum severity: {{.Metadata.MinSeverity}}</p>
    </div>

    <h2>Files</h2>
    {{- range .Files}}
    <div class="file">
        <h3>{{base .Path}}</h3>
        {{- with .Metrics.Complexity}}
        <p class="metrics">Complexity {{.CyclomaticComplexity}} &middot; LOC {{.LinesOfCode}} &middot; Max depth {{.MaxNestingDepth}}</p>
        {{- end}}
        <p class="metrics">Doc coverage {{coverage .Metrics.Documentation}}</p>
        {{- range .Issues}}
        <div class="issue {{severityClass .Severity}}">{{if .Line}}<span class="line">L{{.Line}}</span> {{end}}{{.Message}}</div>
        {{- end}}
    </div>
    {{- end}}

    {{- if .Suggestions}}
    <h2>Suggestions</h2>
    <ol>
        {{- range .Suggestions}}
        <li>{{.}}</li>
        {{- end}}
    </ol>
    {{- end}}
</body>
</html>
`
