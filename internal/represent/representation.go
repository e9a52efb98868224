package represent

// Representation bundles every derived view of a function the detectors
// consume. Building it is pure: the same FunctionRecord always yields the
// same digests.
type Representation struct {
	FunctionID string
	FilePath   string
	Name       string
	StartLine  int
	EndLine    int
	TokenCount int
	LineCount  int

	// StructuralHash is the canonical Merkle root of the alpha-renamed AST.
	StructuralHash string
	// SignatureHash digests name, parameter types and return type.
	SignatureHash string
	// SignatureShape digests parameter types and return type only, used to
	// spot overload-like variants that share a name.
	SignatureShape string

	Fingerprint     []uint64
	FingerprintBits int

	Features FeatureVector

	// Embedding is nil when no semantic vector was supplied for the function.
	Embedding []float64
}

// HasEmbedding reports whether a semantic vector is attached.
func (r *Representation) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// SkipRecord explains why one function was excluded from an analysis run.
type SkipRecord struct {
	FunctionID string `json:"functionId"`
	Reason     string `json:"reason"`
}

// BuildResult carries the usable representations plus the records that
// could not be represented. A skip never aborts the run.
type BuildResult struct {
	Representations []Representation
	Skipped         []SkipRecord
	Warnings        []string
}
