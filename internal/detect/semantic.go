package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
)

// Partition signature width for the approximate index. Eight bits keeps
// buckets small without fragmenting modest corpora.
const annSignatureBits = 8

// DefaultTopK bounds neighbor expansion per function.
const DefaultTopK = 10

// SemanticANN ranks embedding neighbors by cosine similarity using a
// partition-based approximate index. Without embeddings it degrades to an
// empty result plus a warning instead of failing the run.
type SemanticANN struct{}

func (d *SemanticANN) Name() string { return NameSemanticANN }

func (d *SemanticANN) Detect(reps []represent.Representation, opts Options) ([]models.SimilarityPair, []string) {
	candidates := eligible(reps, opts)

	embedded := make([]represent.Representation, 0, len(candidates))
	for _, r := range candidates {
		if r.HasEmbedding() {
			embedded = append(embedded, r)
		}
	}
	if len(embedded) == 0 {
		return nil, []string{"semantic-ann: no embeddings available, detector skipped"}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	// Partition by sign-pattern signature; probe the home bucket plus every
	// one-bit neighbor so borderline vectors still meet.
	buckets := make(map[uint8][]int)
	signatures := make([]uint8, len(embedded))
	for i, r := range embedded {
		sig := annSignature(r.Embedding)
		signatures[i] = sig
		buckets[sig] = append(buckets[sig], i)
	}

	var pairs []models.SimilarityPair
	checked := make(map[string]bool)

	for i := range embedded {
		type neighbor struct {
			index  int
			cosine float64
		}
		var neighbors []neighbor

		for _, sig := range probeSignatures(signatures[i]) {
			for _, j := range buckets[sig] {
				if j == i {
					continue
				}
				a, b := &embedded[i], &embedded[j]
				if !pairAllowed(a, b, opts) {
					continue
				}
				cos := cosineSimilarity(a.Embedding, b.Embedding)
				neighbors = append(neighbors, neighbor{index: j, cosine: cos})
			}
		}

		sort.Slice(neighbors, func(x, y int) bool {
			if neighbors[x].cosine != neighbors[y].cosine {
				return neighbors[x].cosine > neighbors[y].cosine
			}
			return embedded[neighbors[x].index].FunctionID < embedded[neighbors[y].index].FunctionID
		})
		if len(neighbors) > topK {
			neighbors = neighbors[:topK]
		}

		for _, n := range neighbors {
			if n.cosine < opts.Threshold {
				continue
			}
			pair := models.NewSimilarityPair(
				embedded[i].FunctionID, embedded[n.index].FunctionID,
				NameSemanticANN, n.cosine, "semantically similar behavior")
			if checked[pair.Key()] {
				continue
			}
			checked[pair.Key()] = true
			pair.Metadata = map[string]string{
				"cosine": fmt.Sprintf("%.4f", n.cosine),
			}
			pairs = append(pairs, pair)
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key() < pairs[j].Key() })
	return pairs, nil
}

// annSignature derives a sign pattern from the first dimensions of the
// vector. Vectors pointing the same way land in the same partition.
func annSignature(vector []float64) uint8 {
	var sig uint8
	for i := 0; i < annSignatureBits && i < len(vector); i++ {
		if vector[i] > 0 {
			sig |= 1 << uint(i)
		}
	}
	return sig
}

// probeSignatures yields the home partition plus all partitions one bit away.
func probeSignatures(sig uint8) []uint8 {
	out := make([]uint8, 0, annSignatureBits+1)
	out = append(out, sig)
	for i := 0; i < annSignatureBits; i++ {
		out = append(out, sig^(1<<uint(i)))
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dot, normA, normB := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
