package detect

import (
	"fmt"
	"sort"

	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
)

// Detector identifiers, used in options, consensus weights and pair tags.
const (
	NameExactHash          = "exact-hash"
	NameCanonicalMerkle    = "canonical-merkle"
	NameLSHFingerprint     = "lsh-fingerprint"
	NameStructuralWeighted = "structural-weighted"
	NameSemanticANN        = "semantic-ann"
)

// Options carries the per-run filters every detector honors uniformly.
type Options struct {
	// Threshold is the minimum score an emitted pair must reach.
	Threshold float64
	// MinLines excludes functions spanning fewer source lines.
	MinLines int
	// CrossFile false restricts pairs to functions from the same file.
	CrossFile bool
	// TopK bounds the neighbors the semantic detector considers per function.
	TopK int
	// Bands sets the fingerprint banding factor. Zero means DefaultBands.
	Bands int
}

// Detector finds similar function pairs over prebuilt representations.
// Detect is pure: same representations and options, same pairs. Warnings
// report degraded operation such as missing inputs.
type Detector interface {
	Name() string
	Detect(reps []represent.Representation, opts Options) (pairs []models.SimilarityPair, warnings []string)
}

// All returns every detector in registry order.
func All() []Detector {
	return []Detector{
		&ExactHash{},
		&CanonicalMerkle{},
		&LSHFingerprint{},
		&StructuralWeighted{},
		&SemanticANN{},
	}
}

// ByName resolves detector identifiers, preserving registry order and
// dropping duplicates.
func ByName(names []string) ([]Detector, error) {
	registry := All()
	index := make(map[string]Detector, len(registry))
	for _, d := range registry {
		index[d.Name()] = d
	}

	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("unknown detector %q", name)
		}
		want[name] = true
	}

	out := make([]Detector, 0, len(want))
	for _, d := range registry {
		if want[d.Name()] {
			out = append(out, d)
		}
	}
	return out, nil
}

// Names lists the identifiers of the given detectors.
func Names(detectors []Detector) []string {
	out := make([]string, len(detectors))
	for i, d := range detectors {
		out[i] = d.Name()
	}
	return out
}

// eligible applies the shared MinLines filter and returns representations
// sorted by function ID so bucket iteration is deterministic.
func eligible(reps []represent.Representation, opts Options) []represent.Representation {
	out := make([]represent.Representation, 0, len(reps))
	for _, r := range reps {
		if r.LineCount < opts.MinLines {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FunctionID < out[j].FunctionID })
	return out
}

// pairAllowed enforces the cross-file scoping rule for one candidate pair.
func pairAllowed(a, b *represent.Representation, opts Options) bool {
	if a.FunctionID == b.FunctionID {
		return false
	}
	if !opts.CrossFile && a.FilePath != b.FilePath {
		return false
	}
	return true
}
