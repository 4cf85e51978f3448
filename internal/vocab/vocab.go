// Package vocab corrects misheard domain terms in final transcripts.
//
// Browser speech recognition reliably mangles proper nouns: product names,
// team jargon, people. A deployment can configure a keyword list, and every
// final transcript is aligned against it before chunking and storage. The
// matching is purely phonetic and runs in-process with no network calls:
//
//  1. Double Metaphone codes are computed for the transcript window and for
//     each keyword. A shared code makes the keyword a phonetic candidate.
//  2. Candidates are ranked by Jaro-Winkler similarity on the original
//     strings (case-insensitive) and accepted above a configurable
//     threshold. When no phonetic candidate exists, a stricter pure
//     Jaro-Winkler pass runs as a fallback.
//
// Multi-word keywords ("status page") are matched against n-gram windows of
// the transcript, longest window first, so they win over partial single-word
// matches.
//
// A Corrector is read-only after construction and safe for concurrent use.
package vocab

import "strings"

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Correction records a single substitution applied to a transcript.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
}

// Option configures a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically-matched keyword to be accepted. Default 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score when no phonetic
// candidate exists and the matcher falls back to pure string similarity.
// Default 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// Corrector aligns transcript text against a fixed keyword list.
type Corrector struct {
	keywords          []keyword
	maxWords          int
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New builds a Corrector for the given keywords. Phonetic codes are computed
// once here so Apply stays cheap on the session hot path. Blank keywords are
// dropped; a Corrector with no keywords leaves every transcript unchanged.
func New(keywords []string, opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, raw := range keywords {
		kw, ok := prepareKeyword(raw)
		if !ok {
			continue
		}
		c.keywords = append(c.keywords, kw)
		if len(kw.tokens) > c.maxWords {
			c.maxWords = len(kw.tokens)
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Apply returns text with every recognised keyword substituted in, plus the
// list of substitutions made. When nothing matches, the text is returned
// unchanged and the slice is nil.
//
// The walk tries n-gram windows at each token position, widest first, and
// advances past a match by the number of tokens it consumed.
func (c *Corrector) Apply(text string) (string, []Correction) {
	if len(c.keywords) == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := c.maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			corrected, conf, ok := c.match(window)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(corrected)...)
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  corrected,
				Confidence: conf,
			})
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(output, " "), corrections
}
