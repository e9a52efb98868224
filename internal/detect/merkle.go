package detect

import (
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
)

// CanonicalMerkle buckets functions by the Merkle root of their
// alpha-renamed AST. Consistent identifier renames still collide; swapping
// two statements does not, since child order feeds the root.
type CanonicalMerkle struct{}

func (d *CanonicalMerkle) Name() string { return NameCanonicalMerkle }

func (d *CanonicalMerkle) Detect(reps []represent.Representation, opts Options) ([]models.SimilarityPair, []string) {
	candidates := eligible(reps, opts)

	var pairs []models.SimilarityPair
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
					NameCanonicalMerkle, 1.0, "identical canonical AST")
				if pair.Score >= opts.Threshold {
					pairs = append(pairs, pair)
				}
			}
		}
	}

	return pairs, nil
}
