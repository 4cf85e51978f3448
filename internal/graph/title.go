package graph

import (
	"strings"
	"time"
	"unicode"
)

// titleWordCount is how many ranked keywords make up a derived title.
const titleWordCount = 3

// stopWords are excluded from title keyword ranking. Tokens shorter than
// three characters are excluded independently of this set.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "this": {},
	"with": {}, "you": {}, "your": {}, "are": {}, "was": {},
	"were": {}, "have": {}, "has": {}, "had": {}, "but": {},
	"not": {}, "all": {}, "can": {}, "our": {}, "they": {},
	"them": {}, "from": {}, "what": {}, "when": {}, "where": {},
	"will": {}, "would": {}, "there": {}, "their": {}, "about": {},
	"just": {}, "like": {}, "into": {}, "some": {}, "then": {},
}

// TitleFromLabels derives a best-effort conversation title from the labels of
// all nodes: labels are tokenised, stop words and tokens shorter than three
// characters are dropped, the remaining tokens are ranked by frequency (ties
// broken by first-encountered order), and the top three are joined with the
// first letter of the result capitalised.
//
// When no tokens survive filtering, a provisional timestamp title for now is
// returned instead. The function is pure given (labels, now).
func TitleFromLabels(labels []string, now time.Time) string {
	counts := make(map[string]int)
	var order []string

	for _, label := range labels {
		for _, raw := range strings.Fields(label) {
			tok := strings.ToLower(stripNonAlnum(raw))
			if len(tok) < 3 {
				continue
			}
			if _, stop := stopWords[tok]; stop {
				continue
			}
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	if len(order) == 0 {
		return ProvisionalTitle(now)
	}

	// Stable selection sort by descending count keeps first-seen order
	// among equal counts.
	ranked := make([]string, len(order))
	copy(ranked, order)
	for i := 0; i < len(ranked); i++ {
		best := i
		for j := i + 1; j < len(ranked); j++ {
			if counts[ranked[j]] > counts[ranked[best]] {
				best = j
			}
		}
		if best != i {
			picked := ranked[best]
			copy(ranked[i+1:best+1], ranked[i:best])
			ranked[i] = picked
		}
	}

	if len(ranked) > titleWordCount {
		ranked = ranked[:titleWordCount]
	}

	title := strings.Join(ranked, " ")
	return strings.ToUpper(title[:1]) + title[1:]
}

// ProvisionalTitle returns the timestamp-based placeholder title used before
// any content-derived title is computable.
func ProvisionalTitle(now time.Time) string {
	return "Conversation " + now.Format("Jan 2, 2006 15:04")
}

// stripNonAlnum removes every non-alphanumeric rune from s.
func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
