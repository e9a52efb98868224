package represent

import (
	"context"
	"testing"

	"github.com/doppel-dev/doppel/internal/embedding"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, tokens []string, ast *models.ASTNode) models.FunctionRecord {
	return models.FunctionRecord{
		FunctionID: id,
		CorpusID:   "corpus-1",
		FilePath:   "src/util.go",
		Name:       "helper",
		StartLine:  10,
		EndLine:    20,
		Tokens:     tokens,
		AST:        ast,
		Signature:  &models.Signature{Name: "helper", ParamTypes: []string{"int"}, ReturnType: "int"},
	}
}

func TestBuildSkipsUnusableRecords(t *testing.T) {
	functions := []models.FunctionRecord{
		record("fn-ok", []string{"return", "x"}, node("return", "", localIdent("x"))),
		record("fn-no-ast", []string{"return", "x"}, nil),
		record("fn-no-tokens", nil, node("return", "", localIdent("x"))),
	}

	builder := NewBuilder(BuilderOptions{FingerprintBits: 64})
	result := builder.Build(context.Background(), functions)

	require.Len(t, result.Representations, 1)
	assert.Equal(t, "fn-ok", result.Representations[0].FunctionID)

	require.Len(t, result.Skipped, 2)
	reasons := map[string]string{}
	for _, s := range result.Skipped {
		reasons[s.FunctionID] = s.Reason
	}
	assert.Contains(t, reasons["fn-no-ast"], "AST")
	assert.Contains(t, reasons["fn-no-tokens"], "token")
}

func TestBuildPopulatesDigests(t *testing.T) {
	fn := record("fn-1", []string{"return", "x", "+", "y"},
		node("return", "", node("add", "", localIdent("x"), localIdent("y"))))

	builder := NewBuilder(BuilderOptions{FingerprintBits: 64})
	result := builder.Build(context.Background(), []models.FunctionRecord{fn})

	require.Len(t, result.Representations, 1)
	rep := result.Representations[0]
	assert.NotEmpty(t, rep.StructuralHash)
	assert.NotEmpty(t, rep.SignatureHash)
	assert.Len(t, rep.Fingerprint, 1)
	assert.Equal(t, 64, rep.FingerprintBits)
	assert.Equal(t, 11, rep.LineCount)
	assert.False(t, rep.HasEmbedding())
}

func TestBuildAttachesEmbeddings(t *testing.T) {
	fn := record("fn-1", []string{"return", "x"}, node("return", "", localIdent("x")))

	provider := embedding.NewStatic(map[string][]float64{
		"fn-1": {0.1, 0.2, 0.3},
	})
	builder := NewBuilder(BuilderOptions{FingerprintBits: 64, Provider: provider})
	result := builder.Build(context.Background(), []models.FunctionRecord{fn})

	require.Len(t, result.Representations, 1)
	assert.True(t, result.Representations[0].HasEmbedding())
	assert.Empty(t, result.Warnings)
}

func TestBuildReusesCache(t *testing.T) {
	fn := record("fn-1", []string{"return", "x"}, node("return", "", localIdent("x")))
	cache := NewCache()
	builder := NewBuilder(BuilderOptions{FingerprintBits: 64, Cache: cache})

	first := builder.Build(context.Background(), []models.FunctionRecord{fn})
	require.Equal(t, 1, cache.Len())

	second := builder.Build(context.Background(), []models.FunctionRecord{fn})
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, first.Representations, second.Representations)
}
