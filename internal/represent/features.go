package represent

import (
	"github.com/doppel-dev/doppel/internal/models"
)

// Feature vector dimensions, in storage order.
const (
	FeatureBranches = iota
	FeatureLoops
	FeatureNesting
	FeatureStatements
	FeatureParams

	FeatureCount
)

// FeatureVector is the structural profile the weighted detector compares.
type FeatureVector [FeatureCount]float64

// Node kind classes used when metrics have to be re-derived from the AST.
// The parser service normalizes its language-specific kinds to these.
var (
	branchKinds = map[string]bool{
		"if": true, "switch": true, "case": true, "conditional": true,
		"catch": true, "ternary": true,
	}
	loopKinds = map[string]bool{
		"for": true, "while": true, "do": true, "foreach": true, "loop": true,
	}
	statementKinds = map[string]bool{
		"if": true, "switch": true, "for": true, "while": true, "do": true,
		"foreach": true, "loop": true, "return": true, "assign": true,
		"call": true, "declare": true, "throw": true, "break": true,
		"continue": true, "expression": true,
	}
)

// Features builds the structural vector for one function. Parser-provided
// metrics win; the AST walk is the fallback for older extraction payloads
// that carry no metrics block.
func Features(fn *models.FunctionRecord) FeatureVector {
	var v FeatureVector

	if m := fn.Metrics; m != nil {
		v[FeatureBranches] = float64(m.Branches)
		v[FeatureLoops] = float64(m.Loops)
		v[FeatureNesting] = float64(m.NestingDepth)
		v[FeatureStatements] = float64(m.Statements)
		v[FeatureParams] = float64(m.Parameters)
		return v
	}

	branches, loops, statements := 0, 0, 0
	depth := maxNesting(fn.AST, 0, &branches, &loops, &statements)

	v[FeatureBranches] = float64(branches)
	v[FeatureLoops] = float64(loops)
	v[FeatureNesting] = float64(depth)
	v[FeatureStatements] = float64(statements)
	if fn.Signature != nil {
		v[FeatureParams] = float64(len(fn.Signature.ParamTypes))
	}
	return v
}

// maxNesting walks the AST once, counting kind classes and tracking the
// deepest branch/loop nesting level.
func maxNesting(node *models.ASTNode, depth int, branches, loops, statements *int) int {
	if node == nil {
		return depth
	}

	childDepth := depth
	switch {
	case branchKinds[node.Kind]:
		*branches++
		childDepth++
	case loopKinds[node.Kind]:
		*loops++
		childDepth++
	}
	if statementKinds[node.Kind] {
		*statements++
	}

	deepest := childDepth
	for _, child := range node.Children {
		if d := maxNesting(child, childDepth, branches, loops, statements); d > deepest {
			deepest = d
		}
	}
	return deepest
}
