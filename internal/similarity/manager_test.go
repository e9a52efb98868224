package similarity

import (
	"context"
	"testing"

	"github.com/doppel-dev/doppel/internal/consensus"
	"github.com/doppel-dev/doppel/internal/detect"
	"github.com/doppel-dev/doppel/internal/embedding"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func astNode(kind, value string, children ...*models.ASTNode) *models.ASTNode {
	return &models.ASTNode{Kind: kind, Value: value, Children: children}
}

func local(value string) *models.ASTNode {
	return &models.ASTNode{Kind: "identifier", Value: value, Local: true}
}

func function(id, file, name string, endLine int, tokens []string, ast *models.ASTNode, metrics *models.FunctionMetrics, sig *models.Signature) models.FunctionRecord {
	return models.FunctionRecord{
		FunctionID: id,
		CorpusID:   "corpus-1",
		FilePath:   file,
		Name:       name,
		StartLine:  1,
		EndLine:    endLine,
		Tokens:     tokens,
		AST:        ast,
		Metrics:    metrics,
		Signature:  sig,
	}
}

func testOptions(threshold float64) Options {
	return Options{
		Threshold: threshold,
		MinLines:  3,
		CrossFile: true,
		Consensus: consensus.Strategy{Kind: consensus.Union},
	}
}

// two textually identical absolute-value helpers plus one unrelated loop
func identicalPairCorpus() []models.FunctionRecord {
	absTokens := []string{"if", "x", ">", "0", "return", "x", "else", "return", "-", "x"}
	absAST := astNode("function", "",
		astNode("if", "",
			astNode("gt", "", local("x"), astNode("literal", "0")),
			astNode("return", "", local("x")),
			astNode("return", "", astNode("neg", "", local("x"))),
		),
	)
	absMetrics := &models.FunctionMetrics{Branches: 1, NestingDepth: 1, Statements: 3, Parameters: 1}
	absSig := &models.Signature{Name: "absValue", ParamTypes: []string{"int"}, ReturnType: "int"}

	loopTokens := []string{"for", "i", "in", "range", "n", "total", "+=", "arr", "[", "i", "]", "print", "total"}
	loopAST := astNode("function", "",
		astNode("for", "",
			local("i"),
			astNode("call", "range", local("n")),
			astNode("assign", "", local("total")),
		),
		astNode("call", "print", local("total")),
	)
	loopMetrics := &models.FunctionMetrics{Loops: 2, NestingDepth: 2, Statements: 8}
	loopSig := &models.Signature{Name: "sumAll", ParamTypes: []string{"[]int"}, ReturnType: "void"}

	return []models.FunctionRecord{
		function("fn-a", "src/math.go", "absValue", 10, absTokens, absAST, absMetrics, absSig),
		function("fn-b", "src/util.go", "absValue", 10, absTokens, absAST, absMetrics, absSig),
		function("fn-c", "src/loop.go", "sumAll", 12, loopTokens, loopAST, loopMetrics, loopSig),
	}
}

func TestDetectIdenticalPair(t *testing.T) {
	manager := NewManager(nil, nil)

	result, err := manager.Detect(context.Background(), identicalPairCorpus(), testOptions(0.9))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, []string{"fn-a", "fn-b"}, group.Members)
	assert.Equal(t, 1.0, group.Similarity)
	assert.Equal(t, 1.0, group.Confidence)
	assert.Equal(t, "consensus-union", group.Detector)
	assert.Contains(t, group.Detectors, detect.NameExactHash)
	assert.Contains(t, group.Detectors, detect.NameCanonicalMerkle)
	assert.Equal(t, 20, group.CombinedLines)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Skipped)
}

func TestDetectIdempotent(t *testing.T) {
	manager := NewManager(nil, nil)
	corpus := identicalPairCorpus()

	first, err := manager.Detect(context.Background(), corpus, testOptions(0.9))
	require.NoError(t, err)
	second, err := manager.Detect(context.Background(), corpus, testOptions(0.9))
	require.NoError(t, err)

	assert.Equal(t, first.Groups, second.Groups)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, first.Skipped, second.Skipped)
}

func TestDetectMonotoneThreshold(t *testing.T) {
	manager := NewManager(nil, nil)
	corpus := identicalPairCorpus()

	loose, err := manager.Detect(context.Background(), corpus, testOptions(0.5))
	require.NoError(t, err)
	strict, err := manager.Detect(context.Background(), corpus, testOptions(0.95))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(strict.Groups), len(loose.Groups))
	for _, sg := range strict.Groups {
		assert.True(t, containedInSome(sg.Members, loose.Groups),
			"strict group %v missing from loose run", sg.Members)
	}
}

func containedInSome(members []string, groups []models.SimilarityGroup) bool {
	for _, g := range groups {
		set := make(map[string]bool, len(g.Members))
		for _, m := range g.Members {
			set[m] = true
		}
		all := true
		for _, m := range members {
			if !set[m] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func TestDetectRenamedFunctions(t *testing.T) {
	sig := &models.Signature{Name: "scale", ParamTypes: []string{"int"}, ReturnType: "int"}
	metrics := &models.FunctionMetrics{Statements: 2, Parameters: 1}
	original := function("fn-orig", "src/a.go", "scale", 10,
		[]string{"result", "=", "value", "*", "2", "return", "result"},
		astNode("function", "",
			astNode("assign", "", local("result"), astNode("mul", "", local("value"), astNode("literal", "2"))),
			astNode("return", "", local("result")),
		), metrics, sig)
	renamed := function("fn-renamed", "src/b.go", "scale", 10,
		[]string{"out", "=", "input", "*", "2", "return", "out"},
		astNode("function", "",
			astNode("assign", "", local("out"), astNode("mul", "", local("input"), astNode("literal", "2"))),
			astNode("return", "", local("out")),
		), metrics, sig)

	manager := NewManager(nil, nil)
	result, err := manager.Detect(context.Background(), []models.FunctionRecord{original, renamed}, testOptions(0.9))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, []string{"fn-orig", "fn-renamed"}, group.Members)
	assert.Contains(t, group.Detectors, detect.NameCanonicalMerkle)
	assert.Contains(t, group.Detectors, detect.NameExactHash)
	assert.Equal(t, 1.0, group.Similarity)
}

func TestDetectReorderedStatements(t *testing.T) {
	metrics := &models.FunctionMetrics{Statements: 4, Parameters: 2, NestingDepth: 1}
	sigA := &models.Signature{Name: "setup", ParamTypes: []string{"cfg"}, ReturnType: "void"}
	sigB := &models.Signature{Name: "boot", ParamTypes: []string{"env"}, ReturnType: "void"}

	first := function("fn-r1", "src/a.go", "setup", 12,
		[]string{"a", "=", "load", "(", ")", "b", "=", "init", "(", ")", "process", "(", "a", "b", ")", "save", "(", "b", ")"},
		astNode("function", "",
			astNode("assign", "", local("a"), astNode("call", "load")),
			astNode("assign", "", local("b"), astNode("call", "init")),
			astNode("call", "process", local("a"), local("b")),
			astNode("call", "save", local("b")),
		), metrics, sigA)
	second := function("fn-r2", "src/b.go", "boot", 12,
		[]string{"b", "=", "init", "(", ")", "a", "=", "load", "(", ")", "process", "(", "a", "b", ")", "save", "(", "b", ")"},
		astNode("function", "",
			astNode("assign", "", local("b"), astNode("call", "init")),
			astNode("assign", "", local("a"), astNode("call", "load")),
			astNode("call", "process", local("a"), local("b")),
			astNode("call", "save", local("b")),
		), metrics, sigB)

	manager := NewManager(nil, nil)
	result, err := manager.Detect(context.Background(), []models.FunctionRecord{first, second}, testOptions(0.8))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Contains(t, group.Detectors, detect.NameStructuralWeighted)
	assert.NotContains(t, group.Detectors, detect.NameCanonicalMerkle)
	assert.NotContains(t, group.Detectors, detect.NameExactHash)
	assert.GreaterOrEqual(t, group.Similarity, 0.8)
}

func TestDetectSemanticWithoutEmbeddings(t *testing.T) {
	opts := testOptions(0.8)
	opts.Detectors = []string{detect.NameSemanticANN}

	manager := NewManager(nil, nil)
	result, err := manager.Detect(context.Background(), identicalPairCorpus(), opts)
	require.NoError(t, err)

	assert.Empty(t, result.Groups)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "no embeddings")
}

func TestDetectSemanticWithEmbeddings(t *testing.T) {
	provider := embedding.NewStatic(map[string][]float64{
		"fn-a": {1, 1, 1, 1, 1, 1, 1, 1},
		"fn-b": {0.9, 1, 1, 0.8, 1, 1, 1, 1},
		"fn-c": {-1, -1, -1, -1, -1, -1, -1, -1},
	})
	opts := testOptions(0.9)
	opts.Detectors = []string{detect.NameSemanticANN}

	manager := NewManager(nil, provider)
	result, err := manager.Detect(context.Background(), identicalPairCorpus(), opts)
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, []string{"fn-a", "fn-b"}, group.Members)
	assert.Equal(t, []string{detect.NameSemanticANN}, group.Detectors)
	assert.Greater(t, group.Similarity, 0.9)
}

func TestDetectInvalidOptionsFailFast(t *testing.T) {
	manager := NewManager(nil, nil)

	opts := testOptions(1.5)
	result, err := manager.Detect(context.Background(), identicalPairCorpus(), opts)
	require.Error(t, err)
	assert.Nil(t, result)

	var optsErr *InvalidOptionsError
	assert.ErrorAs(t, err, &optsErr)
}

func TestDetectBadStrategyFailFast(t *testing.T) {
	manager := NewManager(nil, nil)

	opts := testOptions(0.9)
	opts.Consensus = consensus.Strategy{Kind: consensus.Majority, Threshold: 10}
	result, err := manager.Detect(context.Background(), identicalPairCorpus(), opts)
	require.Error(t, err)
	assert.Nil(t, result)

	var aggErr *consensus.AggregationError
	assert.ErrorAs(t, err, &aggErr)
}

func TestDetectSkipsMalformedRecords(t *testing.T) {
	corpus := identicalPairCorpus()
	corpus = append(corpus, function("fn-broken", "src/x.go", "broken", 10,
		[]string{"return"}, nil, nil, nil))

	manager := NewManager(nil, nil)
	result, err := manager.Detect(context.Background(), corpus, testOptions(0.9))
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "fn-broken", result.Skipped[0].FunctionID)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"fn-a", "fn-b"}, result.Groups[0].Members)
}

func TestDetectPriorityFavorsLargerDuplication(t *testing.T) {
	bigTokens := []string{"render", "chart", "axes", "legend", "series", "draw", "canvas", "flush", "render", "chart"}
	bigAST := astNode("function", "",
		astNode("call", "render"),
		astNode("call", "draw"),
	)
	bigMetrics := &models.FunctionMetrics{Branches: 2, Loops: 1, NestingDepth: 2, Statements: 10, Parameters: 2}
	bigSig := &models.Signature{Name: "renderChart", ParamTypes: []string{"chart"}, ReturnType: "void"}

	smallTokens := []string{"clamp", "lo", "hi", "min", "max", "value"}
	smallAST := astNode("function", "",
		astNode("call", "min"),
		astNode("call", "max"),
	)
	smallMetrics := &models.FunctionMetrics{NestingDepth: 1, Statements: 2, Parameters: 1}
	smallSig := &models.Signature{Name: "clamp", ParamTypes: []string{"float"}, ReturnType: "float"}

	corpus := []models.FunctionRecord{
		function("big-1", "src/a.go", "renderChart", 60, bigTokens, bigAST, bigMetrics, bigSig),
		function("big-2", "src/b.go", "renderChart", 60, bigTokens, bigAST, bigMetrics, bigSig),
		function("small-1", "src/c.go", "clamp", 6, smallTokens, smallAST, smallMetrics, smallSig),
		function("small-2", "src/d.go", "clamp", 6, smallTokens, smallAST, smallMetrics, smallSig),
	}

	manager := NewManager(nil, nil)
	result, err := manager.Detect(context.Background(), corpus, testOptions(0.9))
	require.NoError(t, err)

	require.Len(t, result.Groups, 2)
	assert.Equal(t, []string{"big-1", "big-2"}, result.Groups[0].Members)
	assert.Equal(t, []string{"small-1", "small-2"}, result.Groups[1].Members)
	assert.Greater(t, result.Groups[0].Priority, result.Groups[1].Priority)
}

func TestFinalizeGroupsScoresConfidencePerEdge(t *testing.T) {
	reps := []represent.Representation{
		{FunctionID: "f1", Name: "parseHeader", LineCount: 10},
		{FunctionID: "f2", Name: "parseHeader", LineCount: 10},
		{FunctionID: "f3", Name: "readHeader", LineCount: 10},
	}
	groups := []models.SimilarityGroup{
		{
			Members:    []string{"f1", "f2", "f3"},
			Similarity: 0.9,
			Edges: []models.SimilarityPair{
				models.NewSimilarityPair("f1", "f2", "lsh-fingerprint", 0.9, ""),
				models.NewSimilarityPair("f2", "f3", "lsh-fingerprint", 0.9, ""),
			},
		},
	}

	manager := NewManager(nil, nil)
	out := manager.finalizeGroups(groups, reps, testOptions(0.8))

	require.Len(t, out, 1)
	// only the f1/f2 edge earns the shared-name bonus:
	// mean of 0.95 and 0.90
	assert.InDelta(t, 0.925, out[0].Confidence, 1e-9)
	require.Len(t, out[0].ConfidenceAdjustments, 1)
	assert.Equal(t, "identical function names", out[0].ConfidenceAdjustments[0].Reason)
	assert.InDelta(t, 0.05, out[0].ConfidenceAdjustments[0].Delta, 1e-9)
}
