package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/QTest-hq/qscan/internal/analysis"
)

// Recommendation buckets for the average cyclomatic complexity per file
const (
	RecommendHigh     = "High average complexity detected - consider refactoring"
	RecommendModerate = "Moderate complexity - monitor and refactor complex functions"
	RecommendGood     = "Good complexity levels maintained"
)

// ComplexityTotals sums the readable rows of a complexity table
type ComplexityTotals struct {
	Files      int
	Complexity int
	LOC        int
	Functions  int
	Classes    int
}

// Average returns the mean complexity over all files, counting unreadable
// files as zero
func (t ComplexityTotals) Average() float64 {
	if t.Files == 0 {
		return 0
	}
	return float64(t.Complexity) / float64(t.Files)
}

// SumComplexity computes the TOTAL row
func SumComplexity(rows []analysis.FileComplexity) ComplexityTotals {
	totals := ComplexityTotals{Files: len(rows)}
	for _, row := range rows {
		if row.Err != nil {
			continue
		}
		totals.Complexity += row.Metrics.CyclomaticComplexity
		totals.LOC += row.Metrics.LinesOfCode
		totals.Functions += row.Metrics.FunctionCount
		totals.Classes += row.Metrics.ClassCount
	}
	return totals
}

// Recommendation maps an average complexity to its bucket
func Recommendation(avg float64) string {
	switch {
	case avg > 15:
		return RecommendHigh
	case avg > 8:
		return RecommendModerate
	default:
		return RecommendGood
	}
}

// RenderComplexity writes the complexity table followed by the totals row
// and the recommendation
func RenderComplexity(w io.Writer, rows []analysis.FileComplexity) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Complexity Analysis")
	fmt.Fprintln(bw, heavyRule)

	tw := tabwriter.NewWriter(bw, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tComplexity\tLOC\tFunctions\tClasses\tMax Depth")
	for _, row := range rows {
		name := filepath.Base(row.Path)
		if row.Err != nil {
			fmt.Fprintf(tw, "%s\tError\t-\t-\t-\t-\n", name)
			continue
		}
		m := row.Metrics
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			name, m.CyclomaticComplexity, m.LinesOfCode, m.FunctionCount, m.ClassCount, m.MaxNestingDepth)
	}

	totals := SumComplexity(rows)
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\t-\n",
		totals.Complexity, totals.LOC, totals.Functions, totals.Classes)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Recommendations:")
	fmt.Fprintf(bw, "  - %s\n", Recommendation(totals.Average()))

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
