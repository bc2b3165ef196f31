// Package wer scores OCR transcription quality against ground-truth
// transcripts using word error rate.
package wer

import (
	"math"
	"regexp"
	"strings"
)

// token matches runs of Unicode letters and digits. Underscores,
// punctuation, and markdown are all discarded so the metric reflects
// content differences, not formatting artifacts.
var token = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Normalize reduces text to its letter/digit tokens joined by single
// spaces. Thai, CJK, and other non-Latin scripts are preserved.
func Normalize(text string) string {
	return strings.Join(token.FindAllString(text, -1), " ")
}

// Score computes the word error rate of ocrText against referenceText over
// the normalized strings. An empty normalized reference scores 0 (nothing
// to transcribe); a non-empty reference with empty OCR output scores 1.
// The result is rounded to 4 decimal places. A computational failure yields
// the sentinel -1, which is distinct from a genuine zero.
func Score(ocrText, referenceText string) float64 {
	normOcr := Normalize(ocrText)
	normRef := Normalize(referenceText)

	if normRef == "" {
		return 0
	}
	if normOcr == "" {
		return 1
	}

	refWords := strings.Fields(normRef)
	ocrWords := strings.Fields(normOcr)
	if len(refWords) == 0 {
		return -1
	}

	dist := editDistance(refWords, ocrWords)
	score := float64(dist) / float64(len(refWords))
	return math.Round(score*10000) / 10000
}

// editDistance is the word-level Levenshtein distance: the minimum number
// of substitutions, deletions, and insertions turning ref into hyp. Two
// rolling rows keep memory linear in the hypothesis length.
func editDistance(ref, hyp []string) int {
	prev := make([]int, len(hyp)+1)
	curr := make([]int, len(hyp)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ref); i++ {
		curr[0] = i
		for j := 1; j <= len(hyp); j++ {
			if ref[i-1] == hyp[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min3(prev[j-1], prev[j], curr[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(hyp)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
