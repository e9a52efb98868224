package represent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/doppel-dev/doppel/internal/models"
)

// CanonicalHash computes the Merkle root of the alpha-renamed AST. Local
// identifiers are replaced with position-of-first-use tokens, so renaming a
// variable consistently does not change the hash. Child order is preserved:
// swapping two statements produces a different root.
func CanonicalHash(root *models.ASTNode) (string, error) {
	if root == nil {
		return "", fmt.Errorf("empty AST")
	}

	names := make(map[string]string)
	assignCanonicalNames(root, names)

	sum := merkleHash(root, names)
	return hex.EncodeToString(sum[:]), nil
}

// assignCanonicalNames walks the tree in pre-order and maps each local
// identifier to var0, var1, ... in order of first appearance. Pre-order
// traversal makes the numbering independent of the original spellings.
func assignCanonicalNames(node *models.ASTNode, names map[string]string) {
	if node == nil {
		return
	}
	if node.Local && node.Value != "" {
		if _, seen := names[node.Value]; !seen {
			names[node.Value] = fmt.Sprintf("var%d", len(names))
		}
	}
	for _, child := range node.Children {
		assignCanonicalNames(child, names)
	}
}

func merkleHash(node *models.ASTNode, names map[string]string) [sha256.Size]byte {
	value := node.Value
	if node.Local {
		if canonical, ok := names[value]; ok {
			value = canonical
		}
	}

	if len(node.Children) == 0 {
		return sha256.Sum256([]byte(node.Kind + "\x00" + value))
	}

	var sb strings.Builder
	sb.WriteString(node.Kind)
	sb.WriteByte(0)
	sb.WriteString(value)
	for _, child := range node.Children {
		childSum := merkleHash(child, names)
		sb.WriteByte(0)
		sb.Write(childSum[:])
	}
	return sha256.Sum256([]byte(sb.String()))
}

// SignatureHash digests the full declared shape including the name.
func SignatureHash(sig *models.Signature) string {
	if sig == nil {
		return ""
	}
	return signatureDigest(sig.Name, sig.ParamTypes, sig.ReturnType)
}

// SignatureShape digests parameter types and return type only.
func SignatureShape(sig *models.Signature) string {
	if sig == nil {
		return ""
	}
	return signatureDigest("", sig.ParamTypes, sig.ReturnType)
}

func signatureDigest(name string, paramTypes []string, returnType string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString("(")
	sb.WriteString(strings.Join(paramTypes, ","))
	sb.WriteString(")")
	sb.WriteString(returnType)
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
