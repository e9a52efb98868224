package detect

import (
	"testing"

	"github.com/doppel-dev/doppel/internal/represent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedRep(id string, vector []float64) represent.Representation {
	r := rep(id, "src/a.go", 10)
	r.Embedding = vector
	return r
}

func TestSemanticANNWarnsWithoutEmbeddings(t *testing.T) {
	reps := []represent.Representation{
		rep("a", "src/a.go", 10),
		rep("b", "src/a.go", 10),
	}

	pairs, warnings := (&SemanticANN{}).Detect(reps, Options{Threshold: 0.8, CrossFile: true})
	assert.Empty(t, pairs)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no embeddings")
}

func TestSemanticANNFindsCloseVectors(t *testing.T) {
	reps := []represent.Representation{
		embeddedRep("a", []float64{1, 1, 1, 1, 1, 1, 1, 1}),
		embeddedRep("b", []float64{0.9, 1, 1, 0.8, 1, 1, 1, 1}),
		embeddedRep("c", []float64{-1, -1, -1, -1, -1, -1, -1, -1}),
	}

	pairs, warnings := (&SemanticANN{}).Detect(reps, Options{Threshold: 0.9, CrossFile: true})
	require.Empty(t, warnings)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].FunctionA)
	assert.Equal(t, "b", pairs[0].FunctionB)
	assert.Greater(t, pairs[0].Score, 0.9)
	assert.Equal(t, NameSemanticANN, pairs[0].Detector)
}

func TestSemanticANNIgnoresFunctionsWithoutVectors(t *testing.T) {
	reps := []represent.Representation{
		embeddedRep("a", []float64{1, 1, 1, 1}),
		rep("plain", "src/a.go", 10),
	}

	pairs, warnings := (&SemanticANN{}).Detect(reps, Options{Threshold: 0.8, CrossFile: true})
	assert.Empty(t, pairs)
	assert.Empty(t, warnings)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
