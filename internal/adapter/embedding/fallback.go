package embedding

import (
	"math"
	"strings"
	"unicode/utf16"
)

// Fallback computes a deterministic bag-of-hashed-words frequency vector.
// Cosine similarity between these vectors approximates lexical overlap, not
// meaning, which keeps ingestion and retrieval functional while the remote
// provider is unavailable.
func Fallback(text string) []float32 {
	vec := make([]float32, Dimension)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		vec[bucket(word)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// bucket maps a word to a vector index with a multiply-by-31 rolling hash
// over UTF-16 code units, truncated to a signed 32-bit value before taking
// the absolute value.
func bucket(word string) int {
	var h uint32
	for _, u := range utf16.Encode([]rune(word)) {
		h = h*31 + uint32(u)
	}
	signed := int64(int32(h))
	if signed < 0 {
		signed = -signed
	}
	return int(signed % Dimension)
}
