package analysis

import (
	"sort"
	"sync"

	"github.com/QTest-hq/qscan/internal/parser"
)

// ExtractDependencies collects the modules imported by a file. For
// 'from x import y' only x is recorded. When modules is non-nil the
// imports are merged into it and TotalModules reports the merged size;
// otherwise TotalModules counts this file alone.
func ExtractDependencies(tree *parser.SyntaxTree, modules *ModuleSet) DependencyInfo {
	seen := make(map[string]struct{})
	tree.Walk(func(n *parser.Node) {
		if n.Kind != parser.KindImport && n.Kind != parser.KindImportFrom {
			return
		}
		for _, m := range n.Modules {
			seen[m] = struct{}{}
		}
	})

	imports := make([]string, 0, len(seen))
	for m := range seen {
		imports = append(imports, m)
	}
	sort.Strings(imports)

	info := DependencyInfo{Imports: imports, TotalModules: len(imports)}
	if modules != nil {
		info.TotalModules = modules.Add(imports...)
	}
	return info
}

// ModuleSet is the union of modules seen during one scan. It is safe for
// concurrent use, and the zero value is an empty set.
type ModuleSet struct {
	mu      sync.Mutex
	modules map[string]struct{}
}

// NewModuleSet creates an empty set
func NewModuleSet() *ModuleSet {
	return &ModuleSet{modules: make(map[string]struct{})}
}

// Add merges modules into the set and returns the resulting size
func (s *ModuleSet) Add(modules ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.modules == nil {
		s.modules = make(map[string]struct{})
	}
	for _, m := range modules {
		s.modules[m] = struct{}{}
	}
	return len(s.modules)
}

// Len returns the number of distinct modules
func (s *ModuleSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.modules)
}

// Modules returns the sorted module names
func (s *ModuleSet) Modules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.modules))
	for m := range s.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
