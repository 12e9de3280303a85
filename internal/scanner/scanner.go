package scanner

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/QTest-hq/qscan/internal/analysis"
)

// ProgressFunc is called after each completed file. It runs on the worker
// goroutines, possibly concurrently, so it must guard any shared state.
type ProgressFunc func(done, total int, result *analysis.Result)

// Options configures a Scanner
type Options struct {
	Exclude    []string
	Workers    int                  // <= 0 means runtime.NumCPU()
	Thresholds *analysis.Thresholds // nil means analysis.DefaultThresholds()
	Progress   ProgressFunc
}

// Scanner discovers files and analyzes them in parallel
type Scanner struct {
	analyzer *analysis.Analyzer
	exclude  []string
	workers  int
	progress ProgressFunc
}

// Session is the state owned by a single scan
type Session struct {
	ID        string
	StartedAt time.Time
	Modules   *analysis.ModuleSet
}

// NewSession starts a fresh session with an empty module set
func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Modules:   analysis.NewModuleSet(),
	}
}

// ScanResult holds the outcome of a scan
type ScanResult struct {
	SessionID   string
	Root        string
	Files       []string
	Results     []*analysis.Result // discovery order, completed files only
	Modules     []string
	Interrupted bool
	Duration    time.Duration
}

// New creates a scanner
func New(opts Options) *Scanner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}

	thresholds := analysis.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	return &Scanner{
		analyzer: analysis.NewAnalyzer(thresholds),
		exclude:  exclude,
		workers:  workers,
		progress: opts.Progress,
	}
}

// Analyzer returns the file analyzer used by the scanner
func (s *Scanner) Analyzer() *analysis.Analyzer {
	return s.analyzer
}

// Discover lists the files a scan of root would analyze
func (s *Scanner) Discover(root string) ([]string, error) {
	return Discover(root, s.exclude)
}

// Scan discovers and analyzes every file under root. Discovery failures
// (ErrRootNotFound, ErrNoFiles) are returned as errors; per-file problems
// are part of the results. When ctx is cancelled the files completed so far
// are returned with Interrupted set.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	files, err := s.Discover(root)
	if err != nil {
		return nil, err
	}

	session := NewSession()
	log.Info().
		Str("root", root).
		Str("session", session.ID).
		Int("files", len(files)).
		Int("workers", s.workers).
		Msg("scan started")

	slots := make([]*analysis.Result, len(files))
	var done atomic.Int64

	s.forEach(ctx, files, func(i int, file string) {
		result, err := s.analyzer.AnalyzeFile(ctx, file, session.Modules)
		if err != nil {
			// cancelled mid-file: leave the slot empty
			return
		}
		slots[i] = result
		n := int(done.Add(1))
		if s.progress != nil {
			s.progress(n, len(files), result)
		}
	})

	results := make([]*analysis.Result, 0, len(files))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}

	scan := &ScanResult{
		SessionID:   session.ID,
		Root:        root,
		Files:       files,
		Results:     results,
		Modules:     session.Modules.Modules(),
		Interrupted: ctx.Err() != nil && len(results) < len(files),
		Duration:    time.Since(session.StartedAt),
	}

	event := log.Info()
	if scan.Interrupted {
		event = log.Warn()
	}
	event.
		Str("session", session.ID).
		Int("analyzed", len(results)).
		Int("files", len(files)).
		Bool("interrupted", scan.Interrupted).
		Dur("duration", scan.Duration).
		Msg("scan finished")

	return scan, nil
}

// Complexity computes complexity metrics only, one row per discovered file
// in discovery order. Unreadable files get a row with Err set. When ctx is
// cancelled the completed rows are returned along with the context error.
func (s *Scanner) Complexity(ctx context.Context, root string) ([]analysis.FileComplexity, error) {
	files, err := s.Discover(root)
	if err != nil {
		return nil, err
	}

	slots := make([]*analysis.FileComplexity, len(files))
	s.forEach(ctx, files, func(i int, file string) {
		row := &analysis.FileComplexity{Path: file}
		content, err := analysis.ReadSource(file)
		if err != nil {
			log.Debug().Err(err).Str("file", file).Msg("cannot read file")
			row.Err = err
		} else if row.Metrics, err = s.analyzer.Complexity(ctx, file, content); err != nil {
			return
		}
		slots[i] = row
	})

	rows := make([]analysis.FileComplexity, 0, len(files))
	for _, row := range slots {
		if row != nil {
			rows = append(rows, *row)
		}
	}

	if err := ctx.Err(); err != nil && len(rows) < len(files) {
		return rows, err
	}
	return rows, nil
}

// forEach runs fn for every file on at most s.workers goroutines. Files not
// yet started when ctx is cancelled are skipped.
func (s *Scanner) forEach(ctx context.Context, files []string, fn func(i int, file string)) {
	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		i, file := i, file
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(i, file)
			return nil
		})
	}
	_ = g.Wait()
}
