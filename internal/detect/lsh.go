package detect

import (
	"fmt"
	"strconv"

	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
)

// DefaultBands is the banding factor for fingerprint bucketing.
const DefaultBands = 8

// LSHFingerprint finds near-duplicates through SimHash banding. Fingerprints
// are split into bands; functions sharing any band bucket become candidates
// and are confirmed by full Hamming distance. Similarity is 1 - distance/bits.
// The banding factor comes from Options.Bands, falling back to DefaultBands
// when unset or incompatible with the fingerprint width.
type LSHFingerprint struct{}

func (d *LSHFingerprint) Name() string { return NameLSHFingerprint }

func (d *LSHFingerprint) Detect(reps []represent.Representation, opts Options) ([]models.SimilarityPair, []string) {
	candidates := eligible(reps, opts)
	if len(candidates) < 2 {
		return nil, nil
	}

	bits := candidates[0].FingerprintBits
	bands := opts.Bands
	if bands <= 0 || bits%bands != 0 {
		bands = DefaultBands
	}
	bandBits := bits / bands

	// band index + band value -> candidate indexes
	buckets := make(map[string][]int)
	for i, r := range candidates {
		for band := 0; band < bands; band++ {
			key := fmt.Sprintf("%d:%x", band, represent.BandKey(r.Fingerprint, band, bandBits))
			buckets[key] = append(buckets[key], i)
		}
	}

	var pairs []models.SimilarityPair
	checked := make(map[string]bool)

	// candidates slice is sorted by function ID, so walking i<j inside each
	// bucket emits pairs in a stable order.
	for i := range candidates {
		for band := 0; band < bands; band++ {
			key := fmt.Sprintf("%d:%x", band, represent.BandKey(candidates[i].Fingerprint, band, bandBits))
			for _, j := range buckets[key] {
				if j <= i {
					continue
				}
				a, b := &candidates[i], &candidates[j]
				if !pairAllowed(a, b, opts) {
					continue
				}
				pair := models.NewSimilarityPair(a.FunctionID, b.FunctionID, NameLSHFingerprint, 0, "")
				if checked[pair.Key()] {
					continue
				}
				checked[pair.Key()] = true

				distance := represent.HammingDistance(a.Fingerprint, b.Fingerprint)
				score := 1.0 - float64(distance)/float64(bits)
				if score < opts.Threshold {
					continue
				}
				pair.Score = score
				pair.Explanation = "near-identical token fingerprint"
				pair.Metadata = map[string]string{
					"hamming": strconv.Itoa(distance),
					"bits":    strconv.Itoa(bits),
					"band":    strconv.Itoa(band),
				}
				pairs = append(pairs, pair)
			}
		}
	}

	return pairs, nil
}
