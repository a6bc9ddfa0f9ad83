// Package similarity scores how likely two names denote the same subject.
//
// Score is Jaro-Winkler over case-folded, NFC-normalized, whitespace
// collapsed input, expressed as an integer percentage.
package similarity

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	// winklerPrefix caps the shared prefix that earns a boost.
	winklerPrefix = 4
	// winklerScale weights each prefix character.
	winklerScale = 0.1
)

// Score returns a confidence in [0,100] that a and b name the same subject.
// Identical names score 100 and an empty side scores 0. Score is symmetric.
func Score(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	ra, rb := []rune(na), []rune(nb)
	// Greedy matching depends on iteration order, so fix it.
	if len(ra) > len(rb) || (len(ra) == len(rb) && na > nb) {
		ra, rb = rb, ra
	}
	return int(math.Round(jaroWinkler(ra, rb) * 100))
}

// Normalize folds case, composes to NFC and collapses whitespace runs.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Best returns the highest score of any query against any name.
func Best(queries, names []string) int {
	best := 0
	for _, q := range queries {
		for _, n := range names {
			if s := Score(q, n); s > best {
				best = s
				if best == 100 {
					return best
				}
			}
		}
	}
	return best
}

func jaroWinkler(a, b []rune) float64 {
	j := jaro(a, b)
	if j == 0 {
		return 0
	}
	prefix := 0
	for prefix < winklerPrefix && prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	return j + float64(prefix)*winklerScale*(1-j)
}

func jaro(a, b []rune) float64 {
	la, lb := len(a), len(b)
	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)
	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(lb-1, i+window)
		for k := lo; k <= hi; k++ {
			if matchedB[k] || a[i] != b[k] {
				continue
			}
			matchedA[i], matchedB[k] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !matchedA[i] {
			continue
		}
		for !matchedB[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions)/2)/m) / 3
}
