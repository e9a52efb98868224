package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable marks a function with no embedding. Builders treat it as
// a normal condition, not a failure.
var ErrUnavailable = errors.New("embedding unavailable")

// Provider supplies semantic vectors produced outside this service.
type Provider interface {
	Embedding(ctx context.Context, functionID string) ([]float64, error)
}

// Static is an in-memory provider backed by a fixed map.
type Static struct {
	Vectors map[string][]float64
}

func NewStatic(vectors map[string][]float64) *Static {
	return &Static{Vectors: vectors}
}

func (s *Static) Embedding(_ context.Context, functionID string) ([]float64, error) {
	if v, ok := s.Vectors[functionID]; ok {
		return v, nil
	}
	return nil, ErrUnavailable
}
