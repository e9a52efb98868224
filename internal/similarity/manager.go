package similarity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/doppel-dev/doppel/internal/confidence"
	"github.com/doppel-dev/doppel/internal/consensus"
	"github.com/doppel-dev/doppel/internal/detect"
	"github.com/doppel-dev/doppel/internal/embedding"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/represent"
	"github.com/rs/zerolog/log"
)

// RunStats summarizes one analysis run.
type RunStats struct {
	Functions   int
	Represented int
	Skipped     int
	PairsFound  map[string]int
	GroupCount  int
	Duration    time.Duration
}

// Result is the complete outcome of one Detect call.
type Result struct {
	Groups   []models.SimilarityGroup
	Warnings []string
	Skipped  []represent.SkipRecord
	Stats    RunStats
}

// Manager orchestrates the full pipeline: representation building, the
// detector fan-out, consensus aggregation, confidence scoring and the final
// priority ordering. Detect is deterministic for a fixed input set.
type Manager struct {
	pool     *WorkerPool
	provider embedding.Provider
	cache    *represent.Cache
}

// NewManager builds a manager. A nil pool runs detectors sequentially; a
// nil provider disables embedding lookups.
func NewManager(pool *WorkerPool, provider embedding.Provider) *Manager {
	return &Manager{
		pool:     pool,
		provider: provider,
		cache:    represent.NewCache(),
	}
}

// Detect analyzes the given functions and returns prioritized similarity
// groups. Option and strategy errors fail fast before any detector runs;
// unusable records and unavailable detectors degrade into skips and
// warnings instead.
func (m *Manager) Detect(ctx context.Context, functions []models.FunctionRecord, opts Options) (*Result, error) {
	started := time.Now()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Normalize()

	builder := represent.NewBuilder(represent.BuilderOptions{
		FingerprintBits: opts.FingerprintBits,
		Cache:           m.cache,
		Provider:        m.provider,
	})
	build := builder.Build(ctx, functions)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detectors, err := m.selectDetectors(opts, build.Representations)
	if err != nil {
		return nil, err
	}
	enabled := detect.Names(detectors)

	if err := opts.Consensus.Validate(enabled); err != nil {
		return nil, err
	}

	detectOpts := detect.Options{
		Threshold: opts.Threshold,
		MinLines:  opts.MinLines,
		CrossFile: opts.CrossFile,
		TopK:      opts.TopK,
		Bands:     opts.FingerprintBands,
	}

	perDetector, warnings, err := m.runDetectors(ctx, detectors, build.Representations, detectOpts)
	if err != nil {
		return nil, err
	}
	warnings = append(build.Warnings, warnings...)

	groups, err := consensus.Aggregate(perDetector, opts.Consensus)
	if err != nil {
		return nil, err
	}

	groups = m.finalizeGroups(groups, build.Representations, opts)

	stats := RunStats{
		Functions:   len(functions),
		Represented: len(build.Representations),
		Skipped:     len(build.Skipped),
		PairsFound:  make(map[string]int, len(perDetector)),
		GroupCount:  len(groups),
		Duration:    time.Since(started),
	}
	for name, pairs := range perDetector {
		stats.PairsFound[name] = len(pairs)
	}

	log.Info().
		Int("functions", stats.Functions).
		Int("skipped", stats.Skipped).
		Int("groups", stats.GroupCount).
		Dur("duration", stats.Duration).
		Msg("Similarity analysis completed")

	return &Result{
		Groups:   groups,
		Warnings: warnings,
		Skipped:  build.Skipped,
		Stats:    stats,
	}, nil
}

// selectDetectors resolves the enabled set. An empty request enables every
// detector whose inputs exist; an explicit request is honored as-is, so a
// requested semantic run without embeddings still surfaces its warning.
func (m *Manager) selectDetectors(opts Options, reps []represent.Representation) ([]detect.Detector, error) {
	if len(opts.Detectors) > 0 {
		return detect.ByName(opts.Detectors)
	}

	hasEmbeddings := false
	for i := range reps {
		if reps[i].HasEmbedding() {
			hasEmbeddings = true
			break
		}
	}

	all := detect.All()
	out := make([]detect.Detector, 0, len(all))
	for _, d := range all {
		if d.Name() == detect.NameSemanticANN && !hasEmbeddings {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type detectorOutcome struct {
	name     string
	pairs    []models.SimilarityPair
	warnings []string
}

type detectorJob struct {
	detector detect.Detector
	reps     []represent.Representation
	opts     detect.Options
	out      chan<- detectorOutcome
}

func (j *detectorJob) Execute(ctx context.Context) error {
	started := time.Now()
	pairs, warnings := j.detector.Detect(j.reps, j.opts)
	log.Debug().
		Str("detector", j.detector.Name()).
		Int("pairs", len(pairs)).
		Dur("duration", time.Since(started)).
		Msg("Detector finished")

	select {
	case j.out <- detectorOutcome{name: j.detector.Name(), pairs: pairs, warnings: warnings}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runDetectors(ctx context.Context, detectors []detect.Detector, reps []represent.Representation, opts detect.Options) (map[string][]models.SimilarityPair, []string, error) {
	perDetector := make(map[string][]models.SimilarityPair, len(detectors))
	var warnings []string

	if m.pool == nil {
		for _, d := range detectors {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			pairs, warns := d.Detect(reps, opts)
			perDetector[d.Name()] = pairs
			warnings = append(warnings, warns...)
		}
		return perDetector, warnings, nil
	}

	out := make(chan detectorOutcome, len(detectors))
	for _, d := range detectors {
		job := &detectorJob{detector: d, reps: reps, opts: opts, out: out}
		if err := m.pool.Submit(job); err != nil {
			return nil, nil, fmt.Errorf("failed to submit detector job: %w", err)
		}
	}

	for range detectors {
		select {
		case outcome := <-out:
			perDetector[outcome.name] = outcome.pairs
			warnings = append(warnings, outcome.warnings...)
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	sort.Strings(warnings)
	return perDetector, warnings, nil
}

// finalizeGroups attaches confidence, refactoring impact and priority, then
// orders groups by priority. Priority favors high similarity over many
// lines of duplicated code.
func (m *Manager) finalizeGroups(groups []models.SimilarityGroup, reps []represent.Representation, opts Options) []models.SimilarityGroup {
	byID := make(map[string]*represent.Representation, len(reps))
	for i := range reps {
		byID[reps[i].FunctionID] = &reps[i]
	}

	out := make([]models.SimilarityGroup, 0, len(groups))
	for _, group := range groups {
		if group.Similarity < opts.Threshold {
			continue
		}

		combinedLines := 0
		for _, id := range group.Members {
			if rep, ok := byID[id]; ok {
				combinedLines += rep.LineCount
			}
		}
		group.CombinedLines = combinedLines

		gctx := confidence.GroupContext{
			GroupSize:        len(group.Members),
			OverloadVariants: overloadVariants(group.Members, byID),
		}
		group.Confidence, group.ConfidenceAdjustments = scoreGroupConfidence(&group, byID, gctx)
		group.RefactoringImpact = consensus.ImpactFor(len(group.Members), combinedLines)
		group.Priority = group.Similarity * float64(combinedLines)

		out = append(out, group)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Members[0] < out[j].Members[0]
	})

	return out
}

// scoreGroupConfidence runs the confidence rules over every edge and
// averages the outcomes. The shared-name bonus is judged per pair, so a
// group mixing names still rewards the edges whose endpoints match. The
// returned adjustments list each rule that fired on at least one edge.
func scoreGroupConfidence(group *models.SimilarityGroup, byID map[string]*represent.Representation, gctx confidence.GroupContext) (float64, []models.ConfidenceAdjustment) {
	if len(group.Edges) == 0 {
		score, applied := confidence.Score(group.Similarity, gctx)
		return score, toAdjustments(applied, nil, nil)
	}

	sum := 0.0
	seen := make(map[string]bool)
	var adjustments []models.ConfidenceAdjustment
	for _, e := range group.Edges {
		ectx := gctx
		ectx.SharedName = pairSharedName(e.FunctionA, e.FunctionB, byID)
		score, applied := confidence.Score(e.Score, ectx)
		sum += score
		adjustments = toAdjustments(applied, seen, adjustments)
	}
	return sum / float64(len(group.Edges)), adjustments
}

func toAdjustments(applied []confidence.Adjustment, seen map[string]bool, out []models.ConfidenceAdjustment) []models.ConfidenceAdjustment {
	for _, adj := range applied {
		if seen != nil {
			if seen[adj.Reason] {
				continue
			}
			seen[adj.Reason] = true
		}
		out = append(out, models.ConfidenceAdjustment{Reason: adj.Reason, Delta: adj.Delta})
	}
	return out
}

// pairSharedName is true when both endpoints carry the same nonempty name.
func pairSharedName(a, b string, byID map[string]*represent.Representation) bool {
	ra, ok := byID[a]
	if !ok || ra.Name == "" {
		return false
	}
	rb, ok := byID[b]
	return ok && rb.Name == ra.Name
}

// overloadVariants counts signature shapes beyond the first among members
// sharing a display name.
func overloadVariants(members []string, byID map[string]*represent.Representation) int {
	shapesByName := make(map[string]map[string]bool)
	for _, id := range members {
		rep, ok := byID[id]
		if !ok || rep.Name == "" || rep.SignatureShape == "" {
			continue
		}
		if shapesByName[rep.Name] == nil {
			shapesByName[rep.Name] = make(map[string]bool)
		}
		shapesByName[rep.Name][rep.SignatureShape] = true
	}

	variants := 0
	for _, shapes := range shapesByName {
		if len(shapes) > 1 {
			variants += len(shapes) - 1
		}
	}
	return variants
}
