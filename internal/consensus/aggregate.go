package consensus

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/doppel-dev/doppel/internal/models"
)

// edge accumulates every detector verdict for one unordered pair.
type edge struct {
	a, b       string
	byDetector map[string]float64
	pairs      []models.SimilarityPair
}

// Aggregate merges per-detector pair lists into connected similarity groups
// under the given strategy. The strategy must already be validated; an
// invalid one still fails here so aggregation never runs on bad policy.
// Output is fully deterministic: members sort lexicographically and groups
// sort by similarity, then by first member.
func Aggregate(perDetector map[string][]models.SimilarityPair, strategy Strategy) ([]models.SimilarityGroup, error) {
	enabled := make([]string, 0, len(perDetector))
	for name := range perDetector {
		enabled = append(enabled, name)
	}
	sort.Strings(enabled)

	if err := strategy.Validate(enabled); err != nil {
		return nil, err
	}

	edges := collectEdges(perDetector)

	kept := make([]*edge, 0, len(edges))
	for _, e := range edges {
		if keepEdge(e, strategy, len(enabled)) {
			kept = append(kept, e)
		}
	}

	uf := newUnionFind()
	for _, e := range kept {
		uf.union(e.a, e.b)
	}

	edgesByRoot := make(map[string][]*edge)
	for _, e := range kept {
		root := uf.find(e.a)
		edgesByRoot[root] = append(edgesByRoot[root], e)
	}

	groups := make([]models.SimilarityGroup, 0, len(edgesByRoot))
	for root, members := range uf.components() {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, buildGroup(members, edgesByRoot[root], strategy))
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Similarity != groups[j].Similarity {
			return groups[i].Similarity > groups[j].Similarity
		}
		return groups[i].Members[0] < groups[j].Members[0]
	})

	return groups, nil
}

func collectEdges(perDetector map[string][]models.SimilarityPair) []*edge {
	byKey := make(map[string]*edge)
	keys := make([]string, 0)

	detectors := make([]string, 0, len(perDetector))
	for name := range perDetector {
		detectors = append(detectors, name)
	}
	sort.Strings(detectors)

	for _, name := range detectors {
		for _, pair := range perDetector[name] {
			key := pair.Key()
			e, ok := byKey[key]
			if !ok {
				e = &edge{
					a:          pair.FunctionA,
					b:          pair.FunctionB,
					byDetector: make(map[string]float64),
				}
				byKey[key] = e
				keys = append(keys, key)
			}
			// keep the strongest verdict when a detector reports twice
			if prev, seen := e.byDetector[name]; !seen || pair.Score > prev {
				e.byDetector[name] = pair.Score
			}
			e.pairs = append(e.pairs, pair)
		}
	}

	sort.Strings(keys)
	out := make([]*edge, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out
}

func keepEdge(e *edge, strategy Strategy, enabledCount int) bool {
	switch strategy.Kind {
	case Union:
		return len(e.byDetector) > 0
	case Intersection:
		return len(e.byDetector) == enabledCount
	case Majority:
		needed := int(math.Ceil(strategy.Threshold * float64(enabledCount)))
		return len(e.byDetector) >= needed
	case Weighted:
		// presence is the indicator: a detector that reported the edge
		// contributes its full weight regardless of its score
		sum := 0.0
		for name := range e.byDetector {
			sum += strategy.Weights[name]
		}
		return sum >= strategy.Threshold
	default:
		return false
	}
}

func buildGroup(members []string, edges []*edge, strategy Strategy) models.SimilarityGroup {
	group := models.SimilarityGroup{
		Members:  members,
		Detector: strategy.Tag(),
	}
	group.SortMembers()

	detectorSet := make(map[string]bool)
	scoreSum, scoreCount := 0.0, 0
	for _, e := range edges {
		for name, score := range e.byDetector {
			detectorSet[name] = true
			scoreSum += score
			scoreCount++
		}
		group.Edges = append(group.Edges, e.pairs...)
	}
	if scoreCount > 0 {
		group.Similarity = scoreSum / float64(scoreCount)
	}

	for name := range detectorSet {
		group.Detectors = append(group.Detectors, name)
	}
	sort.Strings(group.Detectors)

	sort.Slice(group.Edges, func(i, j int) bool {
		if group.Edges[i].Key() != group.Edges[j].Key() {
			return group.Edges[i].Key() < group.Edges[j].Key()
		}
		return group.Edges[i].Detector < group.Edges[j].Detector
	})

	group.Explanation = fmt.Sprintf("%d functions linked by %s",
		len(group.Members), strings.Join(group.Detectors, ", "))

	return group
}

// ImpactFor grades how disruptive consolidating a group would be, from the
// member count and the lines involved.
func ImpactFor(memberCount, combinedLines int) string {
	switch {
	case memberCount > 5 || combinedLines > 300:
		return models.ImpactHigh
	case memberCount > 2 || combinedLines > 80:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}
