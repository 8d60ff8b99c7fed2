package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Confidence thresholds for name matching. A score at or above
// MatchThreshold auto-classifies as matched; scores in
// [SuggestThreshold, MatchThreshold) are suggestions that need human
// confirmation; anything lower is not a candidate at all.
const (
	MatchThreshold   = 80.0
	SuggestThreshold = 40.0
)

// accentStripper decomposes characters and drops combining marks, so
// "café" normalizes the same as "cafe".
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases, strips accents and punctuation, and
// collapses whitespace for comparison.
func NormalizeName(name string) string {
	name = strings.ToLower(name)

	if stripped, _, err := transform.String(accentStripper, name); err == nil {
		name = stripped
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripParenthetical removes trailing parenthesized suffixes such as
// pack sizes or brand notes: "Pasta (Barilla 500g)" -> "Pasta".
func stripParenthetical(name string) string {
	for {
		open := strings.LastIndex(name, "(")
		if open == -1 {
			break
		}
		close := strings.Index(name[open:], ")")
		if close == -1 {
			name = name[:open]
		} else {
			name = name[:open] + name[open+close+1:]
		}
	}
	return strings.TrimSpace(name)
}

// ScoreNames compares two product names and returns a confidence in
// [0,100]. Exact normalized match scores 100; equality after dropping
// parenthetical suffixes scores 95; one name containing the other
// scores 70-90 scaled by length ratio; otherwise the shared-token
// ratio is scaled to 0-70.
func ScoreNames(a, b string) float64 {
	na := NormalizeName(a)
	nb := NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return 100
	}

	if sa, sb := NormalizeName(stripParenthetical(a)), NormalizeName(stripParenthetical(b)); sa != "" && sa == sb {
		return 95
	}

	score := substringScore(na, nb)
	if tok := tokenScore(na, nb); tok > score {
		score = tok
	}
	return score
}

// substringScore scores containment of the shorter name in the longer,
// scaled by how much of the longer name it covers.
func substringScore(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0
	}
	return 70 + 20*float64(len(shorter))/float64(len(longer))
}

// tokenScore scores the fraction of tokens the two names share. The
// denominator is the smaller token set, so two product names differing
// in a single word still land in the suggestion band.
func tokenScore(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}

	shared := 0
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if set[t] && !seen[t] {
			shared++
			seen[t] = true
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return 70 * float64(shared) / float64(smaller)
}

// ConfidenceLevel returns a human-readable label for a score
func ConfidenceLevel(score float64) string {
	switch {
	case score >= MatchThreshold:
		return "high"
	case score >= SuggestThreshold:
		return "medium"
	case score > 0:
		return "low"
	default:
		return "none"
	}
}
