package similarity

import (
	"testing"

	"github.com/doppel-dev/doppel/internal/consensus"
	"github.com/doppel-dev/doppel/internal/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	valid := DefaultOptions()
	assert.NoError(t, valid.Validate())

	cases := []Options{
		{Threshold: 1.5, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: -0.1, Consensus: consensus.Strategy{Kind: consensus.Union}},
		// a zero threshold would disable every detector gate
		{Threshold: 0, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8, MinLines: -1, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8, FingerprintBits: 96, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8, FingerprintBands: 7, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8, FingerprintBands: -1, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8, TopK: -1, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8, Detectors: []string{"ghost"}, Consensus: consensus.Strategy{Kind: consensus.Union}},
		{Threshold: 0.8},
	}

	for _, opts := range cases {
		err := opts.Validate()
		require.Error(t, err)
		var optsErr *InvalidOptionsError
		assert.ErrorAs(t, err, &optsErr)
	}
}

func TestOptionsNormalize(t *testing.T) {
	opts := Options{Threshold: 0.8, Consensus: consensus.Strategy{Kind: consensus.Union}}
	require.NoError(t, opts.Validate())
	opts.Normalize()

	assert.Equal(t, 64, opts.FingerprintBits)
	assert.Equal(t, detect.DefaultBands, opts.FingerprintBands)
	assert.Equal(t, detect.DefaultTopK, opts.TopK)
}
