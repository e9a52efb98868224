package confidence

// Adjustment records one applied confidence rule for explainability.
type Adjustment struct {
	Reason string  `json:"reason"`
	Delta  float64 `json:"delta"`
}

// GroupContext carries the facts the rules read when scoring one pair.
// GroupSize and OverloadVariants describe the group the pair sits in;
// SharedName describes the pair itself.
type GroupContext struct {
	// GroupSize is the number of functions in the group.
	GroupSize int
	// SharedName is true when both functions in the scored pair carry
	// the same display name.
	SharedName bool
	// OverloadVariants counts signature shapes beyond the first among
	// same-named members.
	OverloadVariants int
}

const (
	sharedNameBonus     = 0.05
	overloadPenalty     = 0.10
	largeGroupPenalty   = 0.05
	largeGroupThreshold = 8
)

// Score applies the adjustment rules to a base similarity and clamps the
// outcome to [0, 1]. The returned adjustments list every rule that fired.
func Score(base float64, gctx GroupContext) (float64, []Adjustment) {
	score := base
	var adjustments []Adjustment

	if gctx.SharedName {
		score += sharedNameBonus
		adjustments = append(adjustments, Adjustment{
			Reason: "identical function names",
			Delta:  sharedNameBonus,
		})
	}

	if gctx.OverloadVariants > 0 {
		delta := -overloadPenalty * float64(gctx.OverloadVariants)
		score += delta
		adjustments = append(adjustments, Adjustment{
			Reason: "overload-like signature variants",
			Delta:  delta,
		})
	}

	if gctx.GroupSize > largeGroupThreshold {
		score -= largeGroupPenalty
		adjustments = append(adjustments, Adjustment{
			Reason: "large group",
			Delta:  -largeGroupPenalty,
		})
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, adjustments
}
