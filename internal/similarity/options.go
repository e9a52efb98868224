package similarity

import (
	"fmt"

	"github.com/doppel-dev/doppel/internal/consensus"
	"github.com/doppel-dev/doppel/internal/detect"
)

// Options configures one analysis run. Zero values fall back through
// Normalize to the documented defaults.
type Options struct {
	// Threshold is the minimum similarity in (0, 1] a pair must score.
	Threshold float64
	// MinLines excludes functions spanning fewer source lines.
	MinLines int
	// CrossFile false restricts comparisons to functions in the same file.
	CrossFile bool
	// Detectors lists enabled detector identifiers. Empty means every
	// detector whose inputs are present.
	Detectors []string
	// Consensus selects the aggregation strategy across detectors.
	Consensus consensus.Strategy
	// FingerprintBits sets SimHash width, 64 or 128.
	FingerprintBits int
	// FingerprintBands sets the LSH banding factor. Must divide the width.
	FingerprintBands int
	// TopK bounds semantic neighbor expansion per function.
	TopK int
}

// InvalidOptionsError reports a malformed Options value. The run fails
// before any detector work starts.
type InvalidOptionsError struct {
	Field  string
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid options: %s: %s", e.Field, e.Reason)
}

// DefaultOptions are the stock settings for an unconfigured run.
func DefaultOptions() Options {
	return Options{
		Threshold:        0.8,
		MinLines:         3,
		CrossFile:        true,
		Consensus:        consensus.Strategy{Kind: consensus.Union},
		FingerprintBits:  64,
		FingerprintBands: detect.DefaultBands,
		TopK:             detect.DefaultTopK,
	}
}

// Validate rejects out-of-range settings and unknown detector names.
func (o *Options) Validate() error {
	if o.Threshold <= 0 || o.Threshold > 1 {
		return &InvalidOptionsError{Field: "threshold", Reason: "must be within (0, 1]"}
	}
	if o.MinLines < 0 {
		return &InvalidOptionsError{Field: "minLines", Reason: "must not be negative"}
	}
	if o.FingerprintBits != 0 && o.FingerprintBits != 64 && o.FingerprintBits != 128 {
		return &InvalidOptionsError{Field: "fingerprintBits", Reason: "must be 64 or 128"}
	}
	if o.FingerprintBands != 0 {
		bits := o.FingerprintBits
		if bits == 0 {
			bits = DefaultOptions().FingerprintBits
		}
		if o.FingerprintBands < 0 || bits%o.FingerprintBands != 0 {
			return &InvalidOptionsError{Field: "fingerprintBands", Reason: "must divide the fingerprint width"}
		}
	}
	if o.TopK < 0 {
		return &InvalidOptionsError{Field: "topK", Reason: "must not be negative"}
	}
	if _, err := detect.ByName(o.Detectors); err != nil {
		return &InvalidOptionsError{Field: "detectors", Reason: err.Error()}
	}
	if o.Consensus.Kind == "" {
		return &InvalidOptionsError{Field: "consensus", Reason: "strategy is required"}
	}
	return nil
}

// Normalize fills unset fields with defaults. Call after Validate.
func (o *Options) Normalize() {
	defaults := DefaultOptions()
	if o.FingerprintBits == 0 {
		o.FingerprintBits = defaults.FingerprintBits
	}
	if o.FingerprintBands == 0 {
		o.FingerprintBands = defaults.FingerprintBands
	}
	if o.TopK == 0 {
		o.TopK = defaults.TopK
	}
}
