package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/qscan/internal/analysis"
	"github.com/QTest-hq/qscan/internal/github"
	"github.com/QTest-hq/qscan/internal/report"
	"github.com/QTest-hq/qscan/internal/scanner"
)

// FilesResponse lists the files a report would cover
type FilesResponse struct {
	Root  string   `json:"root"`
	Files []string `json:"files"`
	Total int      `json:"total"`
}

// ComplexityFile is one row of the complexity response
type ComplexityFile struct {
	Path    string                      `json:"path"`
	Metrics *analysis.ComplexityMetrics `json:"metrics,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// ComplexityResponse is the JSON form of the complexity table
type ComplexityResponse struct {
	Files             []ComplexityFile `json:"files"`
	TotalComplexity   int              `json:"total_complexity"`
	TotalLOC          int              `json:"total_lines_of_code"`
	TotalFunctions    int              `json:"total_functions"`
	TotalClasses      int              `json:"total_classes"`
	AverageComplexity float64          `json:"average_complexity"`
	Recommendation    string           `json:"recommendation"`
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.scanner.Discover(s.root)
	if err != nil {
		s.respondScanError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FilesResponse{Root: s.root, Files: files, Total: len(files)})
}

// getReport renders a report; format defaults to json
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if name := r.URL.Query().Get("format"); name != "" {
		var err error
		if format, err = report.ParseFormat(name); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.renderReport(w, r, format)
}

func (s *Server) getHTMLReport(w http.ResponseWriter, r *http.Request) {
	s.renderReport(w, r, report.FormatHTML)
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, format report.Format) {
	min, err := s.minSeverity(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.scanner.Scan(r.Context(), s.root)
	if err != nil {
		s.respondScanError(w, err)
		return
	}
	if result.Interrupted {
		respondError(w, http.StatusServiceUnavailable, "analysis interrupted")
		return
	}

	renderer := s.renderer(result.SessionID)

	var buf bytes.Buffer
	if err := renderer.Render(&buf, result.Results, format, min); err != nil {
		log.Error().Err(err).Msg("failed to render report")
		respondError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) getComplexity(w http.ResponseWriter, r *http.Request) {
	rows, err := s.scanner.Complexity(r.Context(), s.root)
	if err != nil {
		if r.Context().Err() != nil {
			respondError(w, http.StatusServiceUnavailable, "analysis interrupted")
			return
		}
		s.respondScanError(w, err)
		return
	}

	totals := report.SumComplexity(rows)
	resp := ComplexityResponse{
		Files:             make([]ComplexityFile, 0, len(rows)),
		TotalComplexity:   totals.Complexity,
		TotalLOC:          totals.LOC,
		TotalFunctions:    totals.Functions,
		TotalClasses:      totals.Classes,
		AverageComplexity: totals.Average(),
		Recommendation:    report.Recommendation(totals.Average()),
	}
	for _, row := range rows {
		file := ComplexityFile{Path: row.Path}
		if row.Err != nil {
			file.Error = row.Err.Error()
		} else {
			m := row.Metrics
			file.Metrics = &m
		}
		resp.Files = append(resp.Files, file)
	}

	respondJSON(w, http.StatusOK, resp)
}

// minSeverity reads the min_severity query parameter, falling back to the
// configured default
func (s *Server) minSeverity(r *http.Request) (analysis.Severity, error) {
	name := r.URL.Query().Get("min_severity")
	if name == "" && s.cfg != nil {
		name = s.cfg.MinSeverity
	}
	if name == "" {
		return analysis.SeverityInfo, nil
	}
	return analysis.ParseSeverity(name)
}

func (s *Server) renderer(runID string) *report.Renderer {
	renderer := report.NewRenderer()
	renderer.RunID = runID

	if state, err := github.Describe(s.root); err == nil {
		renderer.Commit = state.CommitSHA
		renderer.Branch = state.Branch
	} else if !errors.Is(err, github.ErrNotRepository) {
		log.Debug().Err(err).Msg("cannot read git metadata")
	}

	return renderer
}

func (s *Server) respondScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scanner.ErrRootNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scanner.ErrNoFiles):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("scan failed")
		respondError(w, http.StatusInternalServerError, "scan failed")
	}
}

func contentType(format report.Format) string {
	switch format {
	case report.FormatHTML:
		return "text/html; charset=utf-8"
	case report.FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}
