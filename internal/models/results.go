package models

import (
	"sort"
	"time"
)

type Step string

const (
	StepIdle        Step = "idle"
	StepInitiated   Step = "initiated"
	StepBuilding    Step = "building"
	StepDetecting   Step = "detecting"
	StepAggregating Step = "aggregating"
	StepCompleted   Step = "completed"
	StepFailed      Step = "failed"
)

// SimilarityPair is one detector verdict over an unordered function pair.
// FunctionA always sorts before FunctionB so the same pair never appears
// under two keys.
type SimilarityPair struct {
	FunctionA   string            `bson:"functionA" json:"functionA"`
	FunctionB   string            `bson:"functionB" json:"functionB"`
	Detector    string            `bson:"detector" json:"detector"`
	Score       float64           `bson:"score" json:"score"`
	Explanation string            `bson:"explanation" json:"explanation"`
	Metadata    map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// NewSimilarityPair builds a pair with its members in canonical order.
func NewSimilarityPair(a, b, detector string, score float64, explanation string) SimilarityPair {
	if b < a {
		a, b = b, a
	}
	return SimilarityPair{
		FunctionA:   a,
		FunctionB:   b,
		Detector:    detector,
		Score:       score,
		Explanation: explanation,
	}
}

// Key returns the canonical pair identity, independent of detector.
func (p SimilarityPair) Key() string {
	return p.FunctionA + "\x00" + p.FunctionB
}

// ConfidenceAdjustment records one confidence rule that fired while
// scoring a group's edges.
type ConfidenceAdjustment struct {
	Reason string  `bson:"reason" json:"reason"`
	Delta  float64 `bson:"delta" json:"delta"`
}

// SimilarityGroup is a connected set of functions the consensus step agreed
// are duplicates of each other.
type SimilarityGroup struct {
	Members               []string               `bson:"members" json:"members"`
	Similarity            float64                `bson:"similarity" json:"similarity"`
	Confidence            float64                `bson:"confidence" json:"confidence"`
	ConfidenceAdjustments []ConfidenceAdjustment `bson:"confidenceAdjustments,omitempty" json:"confidenceAdjustments,omitempty"`
	Detector              string                 `bson:"detector" json:"detector"`
	Detectors             []string               `bson:"detectors" json:"detectors"`
	Explanation           string                 `bson:"explanation" json:"explanation"`
	RefactoringImpact     string                 `bson:"refactoringImpact" json:"refactoringImpact"`
	CombinedLines         int                    `bson:"combinedLines" json:"combinedLines"`
	Priority              float64                `bson:"priority" json:"priority"`
	Edges                 []SimilarityPair       `bson:"edges" json:"edges"`
}

// SortMembers normalizes member order for deterministic output.
func (g *SimilarityGroup) SortMembers() {
	sort.Strings(g.Members)
}

// Refactoring impact tiers reported on each group.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// AnalysisReport is the persisted outcome of one corpus analysis run.
type AnalysisReport struct {
	CorpusID      string            `bson:"corpusId" json:"corpusId"`
	Status        string            `bson:"status" json:"status"` // completed, failed
	Groups        []SimilarityGroup `bson:"groups" json:"groups"`
	Warnings      []string          `bson:"warnings,omitempty" json:"warnings,omitempty"`
	SkippedCount  int               `bson:"skippedCount" json:"skippedCount"`
	FunctionCount int               `bson:"functionCount" json:"functionCount"`
	DurationMS    int64             `bson:"durationMs" json:"durationMs"`
	CreatedAt     time.Time         `bson:"createdAt" json:"createdAt"`
}

// Report statuses.
const (
	ReportCompleted = "completed"
	ReportFailed    = "failed"
)

// AnalyzeRequest is the analyze endpoint payload. Optional fields override
// the server-side defaults for this run only.
type AnalyzeRequest struct {
	CorpusID  string         `json:"corpusId" binding:"required"`
	Threshold *float64       `json:"threshold,omitempty"`
	MinLines  *int           `json:"minLines,omitempty"`
	CrossFile *bool          `json:"crossFile,omitempty"`
	Detectors []string       `json:"detectors,omitempty"`
	Consensus *ConsensusSpec `json:"consensus,omitempty"`
}

// ConsensusSpec selects the aggregation strategy for a run.
type ConsensusSpec struct {
	Strategy  string             `json:"strategy"`
	Threshold float64            `json:"threshold,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

// AnalyzeResponse acknowledges an accepted analysis run.
type AnalyzeResponse struct {
	Step     Step   `json:"step"`
	CorpusID string `json:"corpusId"`
}
