package represent

import (
	"context"
	"errors"
	"fmt"

	"github.com/doppel-dev/doppel/internal/embedding"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/rs/zerolog/log"
)

// BuilderOptions configures fingerprint geometry and the optional embedding
// source.
type BuilderOptions struct {
	FingerprintBits int
	Cache           *Cache
	Provider        embedding.Provider
}

// Builder turns raw function records into detector-ready representations.
type Builder struct {
	bits     int
	cache    *Cache
	provider embedding.Provider
}

func NewBuilder(opts BuilderOptions) *Builder {
	bits := opts.FingerprintBits
	if bits != FingerprintBits64 && bits != FingerprintBits128 {
		bits = FingerprintBits64
	}
	return &Builder{
		bits:     bits,
		cache:    opts.Cache,
		provider: opts.Provider,
	}
}

// Build derives a representation per function. Records with a missing AST
// or empty token stream are skipped with a reason instead of failing the
// run. Missing embeddings are tolerated; other provider failures surface as
// warnings.
func (b *Builder) Build(ctx context.Context, functions []models.FunctionRecord) BuildResult {
	result := BuildResult{
		Representations: make([]Representation, 0, len(functions)),
	}

	for i := range functions {
		fn := &functions[i]

		if err := ctx.Err(); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("build interrupted: %v", err))
			return result
		}

		rep, err := b.buildOne(fn)
		if err != nil {
			log.Warn().
				Str("function_id", fn.FunctionID).
				Err(err).
				Msg("Skipping function with unusable representation")
			result.Skipped = append(result.Skipped, SkipRecord{
				FunctionID: fn.FunctionID,
				Reason:     err.Error(),
			})
			continue
		}

		if b.provider != nil {
			vector, err := b.provider.Embedding(ctx, fn.FunctionID)
			switch {
			case err == nil:
				rep.Embedding = vector
			case errors.Is(err, embedding.ErrUnavailable):
				// normal: not every corpus carries embeddings
			default:
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("embedding fetch failed for %s: %v", fn.FunctionID, err))
			}
		}

		result.Representations = append(result.Representations, rep)
	}

	return result
}

func (b *Builder) buildOne(fn *models.FunctionRecord) (Representation, error) {
	if fn.FunctionID == "" {
		return Representation{}, fmt.Errorf("missing function id")
	}
	if fn.AST == nil {
		return Representation{}, fmt.Errorf("missing AST")
	}
	if len(fn.Tokens) == 0 {
		return Representation{}, fmt.Errorf("empty token stream")
	}

	structural, err := b.structuralHash(fn)
	if err != nil {
		return Representation{}, fmt.Errorf("canonical hash: %w", err)
	}

	return Representation{
		FunctionID:      fn.FunctionID,
		FilePath:        fn.FilePath,
		Name:            fn.Name,
		StartLine:       fn.StartLine,
		EndLine:         fn.EndLine,
		TokenCount:      len(fn.Tokens),
		LineCount:       fn.LineCount(),
		StructuralHash:  structural,
		SignatureHash:   SignatureHash(fn.Signature),
		SignatureShape:  SignatureShape(fn.Signature),
		Fingerprint:     b.fingerprint(fn),
		FingerprintBits: b.bits,
		Features:        Features(fn),
	}, nil
}

func (b *Builder) structuralHash(fn *models.FunctionRecord) (string, error) {
	if b.cache != nil {
		if hash, ok := b.cache.structuralHash(fn.FunctionID); ok {
			return hash, nil
		}
	}
	hash, err := CanonicalHash(fn.AST)
	if err != nil {
		return "", err
	}
	if b.cache != nil {
		b.cache.putStructuralHash(fn.FunctionID, hash)
	}
	return hash, nil
}

func (b *Builder) fingerprint(fn *models.FunctionRecord) []uint64 {
	if b.cache != nil {
		if fp, ok := b.cache.fingerprintFor(fn.FunctionID); ok {
			return fp
		}
	}
	fp := Simhash(fn.Tokens, b.bits)
	if b.cache != nil {
		b.cache.putFingerprint(fn.FunctionID, fp)
	}
	return fp
}
