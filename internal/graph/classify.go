package graph

import "strings"

// Size classes of node text.
const (
	ClassN1Gram = 1
	ClassN2Gram = 2
	ClassN3Gram = 3
	ClassLT128  = 4
	ClassLT1024 = 5
	ClassGT1024 = 6
)

// Classify buckets text by magnitude: up to two spaces it is the word count,
// otherwise a band of its byte length.
func Classify(text string) int {
	if spaces := strings.Count(text, " "); spaces <= 2 {
		return spaces + 1
	}
	switch n := len(text); {
	case n < 128:
		return ClassLT128
	case n < 1024:
		return ClassLT1024
	default:
		return ClassGT1024
	}
}
