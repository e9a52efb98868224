package represent

import (
	"testing"

	"github.com/doppel-dev/doppel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(kind, value string, children ...*models.ASTNode) *models.ASTNode {
	return &models.ASTNode{Kind: kind, Value: value, Children: children}
}

func localIdent(value string) *models.ASTNode {
	return &models.ASTNode{Kind: "identifier", Value: value, Local: true}
}

func TestCanonicalHashRenamingInvariance(t *testing.T) {
	original := node("function", "",
		node("assign", "",
			localIdent("total"),
			node("literal", "0"),
		),
		node("return", "", localIdent("total")),
	)
	renamed := node("function", "",
		node("assign", "",
			localIdent("acc"),
			node("literal", "0"),
		),
		node("return", "", localIdent("acc")),
	)

	h1, err := CanonicalHash(original)
	require.NoError(t, err)
	h2, err := CanonicalHash(renamed)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestCanonicalHashDistinguishesLocals(t *testing.T) {
	// two distinct locals collapse differently than one reused local
	twoLocals := node("block", "",
		node("assign", "", localIdent("a"), localIdent("b")),
	)
	oneLocal := node("block", "",
		node("assign", "", localIdent("a"), localIdent("a")),
	)

	h1, err := CanonicalHash(twoLocals)
	require.NoError(t, err)
	h2, err := CanonicalHash(oneLocal)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCanonicalHashPreservesChildOrder(t *testing.T) {
	first := node("block", "",
		node("call", "load"),
		node("call", "save"),
	)
	swapped := node("block", "",
		node("call", "save"),
		node("call", "load"),
	)

	h1, err := CanonicalHash(first)
	require.NoError(t, err)
	h2, err := CanonicalHash(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCanonicalHashKeepsGlobalNames(t *testing.T) {
	callsLoad := node("block", "", node("call", "load"))
	callsSave := node("block", "", node("call", "save"))

	h1, err := CanonicalHash(callsLoad)
	require.NoError(t, err)
	h2, err := CanonicalHash(callsSave)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCanonicalHashNilAST(t *testing.T) {
	_, err := CanonicalHash(nil)
	assert.Error(t, err)
}

func TestSignatureShapeIgnoresName(t *testing.T) {
	a := &models.Signature{Name: "sum", ParamTypes: []string{"int", "int"}, ReturnType: "int"}
	b := &models.Signature{Name: "add", ParamTypes: []string{"int", "int"}, ReturnType: "int"}
	c := &models.Signature{Name: "sum", ParamTypes: []string{"int"}, ReturnType: "int"}

	assert.Equal(t, SignatureShape(a), SignatureShape(b))
	assert.NotEqual(t, SignatureShape(a), SignatureShape(c))
	assert.NotEqual(t, SignatureHash(a), SignatureHash(b))
}
