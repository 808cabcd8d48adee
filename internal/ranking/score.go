// Package ranking scores catalog entries, orders them, and keeps the caller's
// current model selection.
package ranking

import (
	"strings"
)

type band struct {
	markers []string
	score   int
}

// bands is evaluated top to bottom; the first band with a matching marker sets the
// base score. New families are added here.
var bands = []band{
	{[]string{"gemini-3"}, 500},
	{[]string{"thinking"}, 450}, // bleeding-edge experimental family
	{[]string{"gemini-2.5"}, 400},
	{[]string{"gemini-2.0"}, 300},
	{[]string{"gemini-1.5"}, 200},
	{[]string{"gemini-1.0"}, 100},
	{[]string{"gemini-pro", "gemini-flash"}, 150}, // unversioned aliases
}

type adjustment struct {
	markers []string
	delta   int
}

// adjustments all apply, after the band.
var adjustments = []adjustment{
	{[]string{"-rc", "-beta"}, 20},
	{[]string{"-latest"}, 5},
	{[]string{"-lite"}, -20},
}

// Score returns the deterministic heuristic score for a model id.
func Score(id string) int {
	id = strings.ToLower(id)

	score := 0
	for _, b := range bands {
		if containsAny(id, b.markers) {
			score = b.score
			break
		}
	}
	for _, a := range adjustments {
		if containsAny(id, a.markers) {
			score += a.delta
		}
	}
	return score
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
