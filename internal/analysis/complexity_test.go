package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QTest-hq/qscan/internal/parser"
)

func parseSource(t *testing.T, content string) *parser.SyntaxTree {
	t.Helper()
	tree, err := parser.NewParser().Parse(context.Background(), "sample.py", []byte(content))
	require.NoError(t, err)
	return tree
}

func TestAnalyzeComplexity_NoControlFlow(t *testing.T) {
	content := "x = 1\nprint(x)\n"
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 0, m.CyclomaticComplexity)
	assert.Equal(t, 0, m.MaxNestingDepth)
	assert.Equal(t, 0, m.FunctionCount)
	assert.Equal(t, 0, m.ClassCount)
	assert.Equal(t, 2, m.LinesOfCode)
	assert.Equal(t, 0.0, m.AvgFunctionLength)
}

func TestAnalyzeComplexity_NestedIfsInLoop(t *testing.T) {
	content := `import os


def process(items):
    for item in items:
        if item:
            if item > 1:
                os.system("rm -rf /tmp/x")
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 3, m.CyclomaticComplexity)
	assert.Equal(t, 4, m.MaxNestingDepth)
	assert.Equal(t, 1, m.FunctionCount)
	assert.Equal(t, 5.0, m.AvgFunctionLength)
	assert.Equal(t, 6, m.LinesOfCode)
}

func TestAnalyzeComplexity_TryExcept(t *testing.T) {
	content := `def f():
    try:
        pass
    except ValueError:
        pass
    except KeyError:
        pass
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	// try +1, each handler +1, handlers do not nest
	assert.Equal(t, 3, m.CyclomaticComplexity)
	assert.Equal(t, 2, m.MaxNestingDepth)
	assert.Equal(t, 7.0, m.AvgFunctionLength)
}

func TestAnalyzeComplexity_ExceptBodyNestsUnderTry(t *testing.T) {
	content := `try:
    pass
except ValueError:
    if retry:
        pass
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 3, m.CyclomaticComplexity)
	assert.Equal(t, 2, m.MaxNestingDepth)
}

func TestAnalyzeComplexity_ClassAndMethod(t *testing.T) {
	content := `class Greeter:
    def greet(self, name):
        if name:
            return "hi " + name
        return "hi"
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 1, m.CyclomaticComplexity)
	assert.Equal(t, 3, m.MaxNestingDepth)
	assert.Equal(t, 1, m.ClassCount)
	assert.Equal(t, 1, m.FunctionCount)
	assert.Equal(t, 4.0, m.AvgFunctionLength)
}

func TestAnalyzeComplexity_ElifChain(t *testing.T) {
	content := `if a:
    x = 1
elif b:
    x = 2
elif c:
    x = 3
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 3, m.CyclomaticComplexity)
	assert.Equal(t, 3, m.MaxNestingDepth)
}

func TestAnalyzeComplexity_LoopsCount(t *testing.T) {
	content := `while running:
    step()
else:
    stop()

for i in range(3):
    pass
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 2, m.CyclomaticComplexity)
	assert.Equal(t, 1, m.MaxNestingDepth)
}

func TestAnalyzeComplexity_NonBranchingConstructs(t *testing.T) {
	content := `with open(path) as f:
    values = [x for x in f if x]
    label = "a" if values else "b"
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 0, m.CyclomaticComplexity)
	assert.Equal(t, 0, m.MaxNestingDepth)
}

func TestAnalyzeComplexity_AverageFunctionLength(t *testing.T) {
	content := `def one(): pass

def three():
    a = 1
    return a
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 2, m.FunctionCount)
	assert.Equal(t, 2.0, m.AvgFunctionLength)
}

func TestAnalyzeComplexity_FunctionLengthIgnoresTrailingComments(t *testing.T) {
	content := `def f():
    x = 1
    # trailing
    # more

y = 2
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 1, m.FunctionCount)
	assert.Equal(t, 2.0, m.AvgFunctionLength)
}

func TestAnalyzeComplexity_AsyncFor(t *testing.T) {
	content := `async def f():
    async for x in y:
        pass
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 0, m.CyclomaticComplexity)
	assert.Equal(t, 1, m.MaxNestingDepth)
	assert.Equal(t, 1, m.FunctionCount)
}

func TestAnalyzeComplexity_TryStar(t *testing.T) {
	content := `try:
    run()
except* ValueError:
    pass
`
	m := AnalyzeComplexity(parseSource(t, content), content)

	assert.Equal(t, 1, m.CyclomaticComplexity)
	assert.Equal(t, 0, m.MaxNestingDepth)
}

func TestAnalyzeComplexity_NilTree(t *testing.T) {
	m := AnalyzeComplexity(nil, "x = 1\n")
	assert.Equal(t, ComplexityMetrics{}, m)
}

func TestAnalyzeComplexity_UnresolvedEndLine(t *testing.T) {
	tree := &parser.SyntaxTree{Root: &parser.Node{
		Kind: parser.KindModule,
		Children: []*parser.Node{
			{Kind: parser.KindFunction, StartLine: 1},
		},
	}}
	m := AnalyzeComplexity(tree, "")

	assert.Equal(t, 1, m.FunctionCount)
	assert.Equal(t, 0.0, m.AvgFunctionLength)
}

func TestCountLinesOfCode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"blank lines", "\n\n   \n", 0},
		{"comments only", "# one\n    # two\n", 0},
		{"mixed", "# header\n\nx = 1\n  y = 2  # trailing\n", 2},
		{"no trailing newline", "a = 1", 1},
		{"crlf", "a = 1\r\n\r\nb = 2\r\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountLinesOfCode(tt.content))
		})
	}
}
