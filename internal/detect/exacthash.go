package detect

import (
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
)

// Signature-only matches are weak evidence compared to structural identity.
const signatureMatchScore = 0.6

// ExactHash buckets functions by structural hash, then by full signature
// hash. Structural collisions score 1.0; signature-only collisions score
// lower and never override a structural match.
type ExactHash struct{}

func (d *ExactHash) Name() string { return NameExactHash }

func (d *ExactHash) Detect(reps []represent.Representation, opts Options) ([]models.SimilarityPair, []string) {
	candidates := eligible(reps, opts)

	var pairs []models.SimilarityPair
	seen := make(map[string]bool)

	for _, bucket := range bucketBy(candidates, func(r *represent.Representation) string {
		return r.StructuralHash
	}) {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if !pairAllowed(&bucket[i], &bucket[j], opts) {
					continue
				}
				pair := models.NewSimilarityPair(
					bucket[i].FunctionID, bucket[j].FunctionID,
					NameExactHash, 1.0, "identical structure")
				seen[pair.Key()] = true
				if pair.Score >= opts.Threshold {
					pairs = append(pairs, pair)
				}
			}
		}
	}

	for _, bucket := range bucketBy(candidates, func(r *represent.Representation) string {
		return r.SignatureHash
	}) {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if !pairAllowed(&bucket[i], &bucket[j], opts) {
					continue
				}
				pair := models.NewSimilarityPair(
					bucket[i].FunctionID, bucket[j].FunctionID,
					NameExactHash, signatureMatchScore, "matching signature")
				if seen[pair.Key()] {
					continue
				}
				seen[pair.Key()] = true
				if pair.Score >= opts.Threshold {
					pairs = append(pairs, pair)
				}
			}
		}
	}

	return pairs, nil
}

// bucketBy groups representations by key, dropping empty keys and returning
// buckets in deterministic key order.
func bucketBy(reps []represent.Representation, key func(*represent.Representation) string) [][]represent.Representation {
	byKey := make(map[string][]represent.Representation)
	keys := make([]string, 0)
	for _, r := range reps {
		k := key(&r)
		if k == "" {
			continue
		}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	out := make([][]represent.Representation, 0, len(keys))
	for _, k := range keys {
		if len(byKey[k]) > 1 {
			out = append(out, byKey[k])
		}
	}
	return out
}
