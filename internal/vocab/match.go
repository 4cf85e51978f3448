package vocab

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// keyword is a configured vocabulary entry with its phonetic codes
// precomputed at construction time.
type keyword struct {
	original string
	lowered  string
	tokens   []string
	codes    map[string]struct{}
}

func prepareKeyword(raw string) (keyword, bool) {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return keyword{}, false
	}
	tokens := strings.Fields(lowered)
	return keyword{
		original: strings.TrimSpace(raw),
		lowered:  lowered,
		tokens:   tokens,
		codes:    codesForTokens(tokens),
	}, true
}

// match finds the keyword most similar to window, a single word or a
// space-separated n-gram. Phonetic candidates are preferred over pure string
// similarity; when nothing clears its threshold, ok is false and corrected
// equals window unchanged.
func (c *Corrector) match(window string) (corrected string, confidence float64, ok bool) {
	windowLower := strings.ToLower(strings.TrimSpace(window))
	if windowLower == "" {
		return window, 0, false
	}
	windowTokens := strings.Fields(windowLower)
	windowCodes := codesForTokens(windowTokens)

	var (
		best         keyword
		bestScore    float64
		bestPhonetic bool
	)

	for _, kw := range c.keywords {
		score := similarity(windowTokens, kw.tokens, windowLower, kw.lowered)

		if codesOverlap(windowCodes, kw.codes) {
			if score >= c.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = kw, score, true
			}
		} else if !bestPhonetic {
			if score >= c.fuzzyThreshold && score > bestScore {
				best, bestScore = kw, score
			}
		}
	}

	if best.original == "" {
		return window, 0, false
	}
	return best.original, bestScore, true
}

// codesForTokens returns the union of Double Metaphone codes for the tokens.
// Empty codes (short or vowel-only words) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the better of two Jaro-Winkler scores: the full strings, and
// the space-stripped strings (catches one misheard word split in two, like
// "post gress"). Token-pair scoring is deliberately absent: a window sharing
// one good token with a multi-word keyword must not claim the whole keyword.
func similarity(windowTokens, kwTokens []string, windowFull, kwFull string) float64 {
	score := matchr.JaroWinkler(windowFull, kwFull, false)

	if len(windowTokens) > 1 || len(kwTokens) > 1 {
		concat1 := strings.Join(windowTokens, "")
		concat2 := strings.Join(kwTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	return score
}
