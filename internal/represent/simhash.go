package represent

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
	"strings"
)

// SimHash constants. Bits must divide evenly into 64-bit words.
const (
	FingerprintBits64  = 64
	FingerprintBits128 = 128

	shingleSize = 3
)

// Simhash folds weighted token shingles into a B-bit fingerprint. Each
// shingle contributes its SHA-256 bits to a signed accumulator, weighted by
// its occurrence count, and the sign of each accumulator cell becomes one
// fingerprint bit. The derivation is fully deterministic.
func Simhash(tokens []string, bitCount int) []uint64 {
	acc := make([]int64, bitCount)

	for shingle, weight := range shingles(tokens) {
		sum := sha256.Sum256([]byte(shingle))
		for i := 0; i < bitCount; i++ {
			word := binary.BigEndian.Uint64(sum[(i/64)*8 : (i/64)*8+8])
			if word&(1<<(uint(i)%64)) != 0 {
				acc[i] += int64(weight)
			} else {
				acc[i] -= int64(weight)
			}
		}
	}

	words := make([]uint64, bitCount/64)
	for i, v := range acc {
		if v > 0 {
			words[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return words
}

// shingles returns overlapping token n-grams with occurrence counts. Token
// streams shorter than the shingle size collapse to a single shingle so tiny
// functions still fingerprint.
func shingles(tokens []string) map[string]int {
	out := make(map[string]int)
	if len(tokens) == 0 {
		return out
	}
	if len(tokens) < shingleSize {
		out[strings.Join(tokens, "\x00")] = 1
		return out
	}
	for i := 0; i+shingleSize <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+shingleSize], "\x00")]++
	}
	return out
}

// HammingDistance counts differing bits between two equal-length fingerprints.
func HammingDistance(a, b []uint64) int {
	d := 0
	for i := range a {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d
}

// BandKey folds the band-th slice of bandBits bits into a bucket key.
// FNV folding keeps the key well defined even when a band straddles a
// word boundary.
func BandKey(words []uint64, band, bandBits int) uint64 {
	const (
		fnvOffset = 14695981039346656037
		fnvPrime  = 1099511628211
	)
	key := uint64(fnvOffset)
	start := band * bandBits
	for i := 0; i < bandBits; i++ {
		bit := (words[(start+i)/64] >> (uint(start+i) % 64)) & 1
		key = (key ^ bit) * fnvPrime
	}
	return key
}
