package detect

import (
	"testing"

	"github.com/doppel-dev/doppel/internal/represent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structuralRep(id, structural string) represent.Representation {
	r := rep(id, "src/a.go", 10)
	r.StructuralHash = structural
	return r
}

func TestCanonicalMerkleMatchesSameStructure(t *testing.T) {
	reps := []represent.Representation{
		structuralRep("a", "root-1"),
		structuralRep("b", "root-1"),
		structuralRep("c", "root-2"),
	}

	pairs, warnings := (&CanonicalMerkle{}).Detect(reps, Options{Threshold: 0.9, CrossFile: true})
	require.Empty(t, warnings)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].FunctionA)
	assert.Equal(t, "b", pairs[0].FunctionB)
	assert.Equal(t, 1.0, pairs[0].Score)
	assert.Equal(t, NameCanonicalMerkle, pairs[0].Detector)
}

func TestCanonicalMerkleGroupsLargerBuckets(t *testing.T) {
	reps := []represent.Representation{
		structuralRep("a", "root-1"),
		structuralRep("b", "root-1"),
		structuralRep("c", "root-1"),
	}

	pairs, _ := (&CanonicalMerkle{}).Detect(reps, Options{Threshold: 0.9, CrossFile: true})
	assert.Len(t, pairs, 3)
}
