package consensus

import (
	"fmt"
)

// Kind selects how per-detector verdicts combine into kept edges.
type Kind string

const (
	// Union keeps an edge any detector reported.
	Union Kind = "union"
	// Intersection keeps an edge only when every enabled detector reported it.
	Intersection Kind = "intersection"
	// Majority keeps an edge at least Threshold detectors reported.
	Majority Kind = "majority"
	// Weighted keeps an edge when the summed weights of the detectors
	// reporting it reach Threshold.
	Weighted Kind = "weighted"
)

// Strategy is a validated aggregation policy. Majority reads Threshold as
// the fraction of enabled detectors that must agree; Weighted reads it as
// the minimum summed weight of the detectors reporting an edge. Threshold
// is constrained to (0,1].
type Strategy struct {
	Kind      Kind
	Threshold float64
	Weights   map[string]float64
}

// AggregationError reports a strategy that cannot run against the enabled
// detector set. Aggregation fails fast on it, before any detector runs.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation error: %s", e.Reason)
}

// Validate checks the strategy against the detectors enabled for the run.
func (s Strategy) Validate(enabled []string) error {
	switch s.Kind {
	case Union, Intersection:
		return nil
	case Majority:
		if s.Threshold <= 0 || s.Threshold > 1 {
			return &AggregationError{Reason: fmt.Sprintf(
				"majority threshold %v must be in (0,1]", s.Threshold)}
		}
		return nil
	case Weighted:
		if len(s.Weights) == 0 {
			return &AggregationError{Reason: "weighted strategy requires detector weights"}
		}
		enabledSet := make(map[string]bool, len(enabled))
		for _, name := range enabled {
			enabledSet[name] = true
		}
		for name, weight := range s.Weights {
			if !enabledSet[name] {
				return &AggregationError{Reason: fmt.Sprintf("weight references disabled detector %q", name)}
			}
			if weight < 0 {
				return &AggregationError{Reason: fmt.Sprintf("negative weight for detector %q", name)}
			}
		}
		if s.Threshold <= 0 || s.Threshold > 1 {
			return &AggregationError{Reason: fmt.Sprintf(
				"weighted threshold %v must be in (0,1]", s.Threshold)}
		}
		return nil
	default:
		return &AggregationError{Reason: fmt.Sprintf("unknown strategy %q", string(s.Kind))}
	}
}

// Tag is the consensus label stamped on resulting groups.
func (s Strategy) Tag() string {
	return "consensus-" + string(s.Kind)
}
