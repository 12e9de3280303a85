package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

const (
	heavyRule = "=================================================="
	lightRule = "--------------------------------------------------"
)

func renderText(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Analysis Summary")
	fmt.Fprintln(bw, heavyRule)

	tw := tabwriter.NewWriter(bw, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tIssues\tComplexity\tLOC\tDoc Coverage")
	for _, f := range doc.Files {
		complexity, loc, coverage := 0, 0, 0.0
		if m := f.Metrics.Complexity; m != nil {
			complexity, loc = m.CyclomaticComplexity, m.LinesOfCode
		}
		if m := f.Metrics.Documentation; m != nil {
			coverage = m.FunctionCoverage
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\n",
			filepath.Base(f.Path), len(f.Issues), complexity, loc, coverage)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintln(bw)

	if doc.Summary.TotalIssues > 0 {
		fmt.Fprintf(bw, "Detailed Issues (%d total)\n", doc.Summary.TotalIssues)
		fmt.Fprintln(bw, lightRule)

		for _, f := range doc.Files {
			if len(f.Issues) == 0 {
				continue
			}
			fmt.Fprintf(bw, "\n%s\n", filepath.Base(f.Path))
			for _, issue := range f.Issues {
				location := ""
				if issue.Line > 0 {
					location = fmt.Sprintf(":%d", issue.Line)
				}
				fmt.Fprintf(bw, "  [%s] %s%s: %s\n",
					strings.ToUpper(string(issue.Severity)), issue.Type, location, issue.Message)
			}
		}
	}

	if doc.Summary.TotalSuggestions > 0 {
		fmt.Fprintf(bw, "\nSuggestions (%d total)\n", doc.Summary.TotalSuggestions)
		fmt.Fprintln(bw, lightRule)
		for i, s := range UniqueSuggestions(doc.Files) {
			fmt.Fprintf(bw, "  %d. %s\n", i+1, s)
		}
	}
	fmt.Fprintln(bw)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
