package detect

import (
	"fmt"
	"math"

	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
)

// sizeBucketWidth groups functions into token-count buckets so the weighted
// comparison stays near-linear on large corpora.
const sizeBucketWidth = 32

// featureWeights emphasizes control flow over raw statement volume.
var featureWeights = [represent.FeatureCount]float64{
	represent.FeatureBranches:   0.25,
	represent.FeatureLoops:      0.25,
	represent.FeatureNesting:    0.20,
	represent.FeatureStatements: 0.20,
	represent.FeatureParams:     0.10,
}

// StructuralWeighted compares feature vectors with weighted normalized
// distance. Statement reordering keeps the vector intact, so it catches
// clones the Merkle detector misses.
type StructuralWeighted struct{}

func (d *StructuralWeighted) Name() string { return NameStructuralWeighted }

func (d *StructuralWeighted) Detect(reps []represent.Representation, opts Options) ([]models.SimilarityPair, []string) {
	candidates := eligible(reps, opts)

	buckets := make(map[int][]int)
	for i, r := range candidates {
		buckets[r.TokenCount/sizeBucketWidth] = append(buckets[r.TokenCount/sizeBucketWidth], i)
	}

	var pairs []models.SimilarityPair
	checked := make(map[string]bool)

	for i, r := range candidates {
		base := r.TokenCount / sizeBucketWidth
		// adjacent buckets keep near-equal sizes comparable across the
		// bucket boundary
		for _, bucket := range []int{base - 1, base, base + 1} {
			for _, j := range buckets[bucket] {
				if j <= i {
					continue
				}
				a, b := &candidates[i], &candidates[j]
				if !pairAllowed(a, b, opts) {
					continue
				}
				pair := models.NewSimilarityPair(a.FunctionID, b.FunctionID, NameStructuralWeighted, 0, "")
				if checked[pair.Key()] {
					continue
				}
				checked[pair.Key()] = true

				score := featureSimilarity(a.Features, b.Features)
				if score < opts.Threshold {
					continue
				}
				pair.Score = score
				pair.Explanation = "similar control-flow profile"
				pair.Metadata = map[string]string{
					"features": fmt.Sprintf("%v vs %v", a.Features, b.Features),
				}
				pairs = append(pairs, pair)
			}
		}
	}

	return pairs, nil
}

// featureSimilarity is 1 minus the weighted sum of per-dimension relative
// differences. Identical vectors score 1.0.
func featureSimilarity(a, b represent.FeatureVector) float64 {
	distance := 0.0
	for i := 0; i < represent.FeatureCount; i++ {
		span := math.Max(math.Max(a[i], b[i]), 1.0)
		distance += featureWeights[i] * math.Abs(a[i]-b[i]) / span
	}
	return 1.0 - distance
}
