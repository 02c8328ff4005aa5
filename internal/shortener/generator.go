package shortener

import (
	"crypto/rand"
	"math/big"
)

// Base62 character set (0-9, A-Z, a-z) - 62 characters total
// Using base62 instead of base64 avoids special characters that might cause URL issues
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MaxCodeLength is the upper bound on any short code, generated or custom
const MaxCodeLength = 10

// CodeGenerator generates collision-resistant short codes using
// cryptographically secure random numbers. There is no shared counter state,
// so concurrent generators never coordinate; the creation path is responsible
// for uniqueness via the storage-layer constraint and a bounded retry loop.
type CodeGenerator struct {
	length int // Length of generated codes
}

// NewCodeGenerator creates a new code generator with the specified length.
// Recommended length: 6-8 characters for good collision resistance
// - 6 chars = 62^6 = ~56 billion combinations
// - 7 chars = 62^7 = ~3.5 trillion combinations
func NewCodeGenerator(length int) *CodeGenerator {
	if length < 4 {
		length = 6 // Minimum safe length
	}
	if length > MaxCodeLength {
		length = MaxCodeLength
	}

	return &CodeGenerator{
		length: length,
	}
}

// Generate creates a random short code using base62 encoding.
// Uses crypto/rand so codes are unpredictable and uniformly distributed.
// Collisions are possible by design; callers must retry on conflict.
func (g *CodeGenerator) Generate() string {
	result := make([]byte, g.length)

	for i := 0; i < g.length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			// Fallback if crypto/rand fails; should rarely happen in practice
			num = big.NewInt(int64(i % len(base62Chars)))
		}

		result[i] = base62Chars[num.Int64()]
	}

	return string(result)
}

// IsValid checks if a short code contains only valid base62 characters
// and fits the 1-10 character bound
func (g *CodeGenerator) IsValid(code string) bool {
	if len(code) == 0 || len(code) > MaxCodeLength {
		return false
	}

	for _, char := range code {
		found := false
		for _, validChar := range base62Chars {
			if char == validChar {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// GetCollisionProbability calculates approximate collision probability
// Formula: 1 - (1 - 1/N)^k where N = total combinations, k = number of links
// This is a simplified birthday problem calculation
func (g *CodeGenerator) GetCollisionProbability(numLinks int) float64 {
	if numLinks <= 0 {
		return 0.0
	}

	// Calculate total possible combinations (62^length)
	totalCombinations := 1.0
	for i := 0; i < g.length; i++ {
		totalCombinations *= 62
	}

	// For large N, probability is approximately k^2 / (2*N)
	probability := float64(numLinks*numLinks) / (2.0 * totalCombinations)

	if probability > 1.0 {
		probability = 1.0
	}

	return probability
}
