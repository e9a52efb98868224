package models

import (
	"time"
)

// FunctionRecord represents one extracted function stored in MongoDB.
// Records arrive pre-extracted from the external parser service over the
// Redis stream; doppel never parses source text itself.
type FunctionRecord struct {
	FunctionID string           `bson:"functionId" json:"functionId"`
	CorpusID   string           `bson:"corpusId" json:"corpusId"`
	FilePath   string           `bson:"filePath" json:"filePath"`
	Name       string           `bson:"name" json:"name"`
	Language   string           `bson:"language" json:"language"`
	StartLine  int              `bson:"startLine" json:"startLine"`
	EndLine    int              `bson:"endLine" json:"endLine"`
	Tokens     []string         `bson:"tokens" json:"tokens"`
	Signature  *Signature       `bson:"signature" json:"signature"`
	AST        *ASTNode         `bson:"ast" json:"ast"`
	Metrics    *FunctionMetrics `bson:"metrics" json:"metrics"`
	CreatedAt  time.Time        `bson:"createdAt" json:"createdAt"`
}

// LineCount returns the number of source lines the function spans.
func (f *FunctionRecord) LineCount() int {
	if f.EndLine < f.StartLine {
		return 0
	}
	return f.EndLine - f.StartLine + 1
}

// Signature describes a function's declared shape.
type Signature struct {
	Name       string   `bson:"name" json:"name"`
	ParamTypes []string `bson:"paramTypes" json:"paramTypes"`
	ReturnType string   `bson:"returnType" json:"returnType"`
}

// ASTNode represents one node of the extracted abstract syntax tree.
// Identifier nodes bound in local scope carry Local=true; the canonicalizer
// alpha-renames exactly those, so global references keep their spelling.
type ASTNode struct {
	Kind     string     `bson:"kind" json:"kind"`
	Value    string     `bson:"value,omitempty" json:"value,omitempty"`
	Local    bool       `bson:"local,omitempty" json:"local,omitempty"`
	Children []*ASTNode `bson:"children,omitempty" json:"children,omitempty"`
}

// FunctionMetrics holds structural counters computed by the parser service.
// When present they take priority over counts re-derived from the AST.
type FunctionMetrics struct {
	Branches     int `bson:"branches" json:"branches"`
	Loops        int `bson:"loops" json:"loops"`
	NestingDepth int `bson:"nestingDepth" json:"nestingDepth"`
	Statements   int `bson:"statements" json:"statements"`
	Parameters   int `bson:"parameters" json:"parameters"`
}
