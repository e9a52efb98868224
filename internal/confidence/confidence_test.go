package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreNoAdjustments(t *testing.T) {
	score, adjustments := Score(0.85, GroupContext{GroupSize: 2})
	assert.Equal(t, 0.85, score)
	assert.Empty(t, adjustments)
}

func TestScoreSharedNameBonus(t *testing.T) {
	score, adjustments := Score(0.85, GroupContext{GroupSize: 2, SharedName: true})
	assert.InDelta(t, 0.90, score, 1e-9)
	require.Len(t, adjustments, 1)
	assert.Equal(t, 0.05, adjustments[0].Delta)
}

func TestScoreOverloadPenaltyPerVariant(t *testing.T) {
	score, adjustments := Score(0.9, GroupContext{GroupSize: 3, OverloadVariants: 2})
	assert.InDelta(t, 0.7, score, 1e-9)
	require.Len(t, adjustments, 1)
	assert.InDelta(t, -0.2, adjustments[0].Delta, 1e-9)
}

func TestScoreLargeGroupPenalty(t *testing.T) {
	score, adjustments := Score(0.9, GroupContext{GroupSize: 9})
	assert.InDelta(t, 0.85, score, 1e-9)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "large group", adjustments[0].Reason)

	// size 8 is still within bounds
	score, adjustments = Score(0.9, GroupContext{GroupSize: 8})
	assert.Equal(t, 0.9, score)
	assert.Empty(t, adjustments)
}

func TestScoreClamping(t *testing.T) {
	high, _ := Score(1.0, GroupContext{GroupSize: 2, SharedName: true})
	assert.Equal(t, 1.0, high)

	low, _ := Score(0.05, GroupContext{GroupSize: 9, OverloadVariants: 3})
	assert.Equal(t, 0.0, low)
}

func TestScoreCombinedAdjustments(t *testing.T) {
	score, adjustments := Score(0.9, GroupContext{
		GroupSize:        9,
		SharedName:       true,
		OverloadVariants: 1,
	})
	// 0.9 + 0.05 - 0.1 - 0.05
	assert.InDelta(t, 0.8, score, 1e-9)
	assert.Len(t, adjustments, 3)
}
