package cleaner

import (
	"strings"
	"unicode"
)

// maxLabelRunes caps the labels considered for matching. Consent controls
// carry short labels; long ones are paragraphs that merely mention a phrase.
const maxLabelRunes = 60

// Matcher decides whether a visible control label is consent vocabulary.
// It is pure and safe for concurrent use.
type Matcher struct {
	phrases []string
}

// NewMatcher builds a Matcher over phrases. Phrases are lower-cased and
// whitespace-normalized; blanks are dropped.
func NewMatcher(phrases []string) *Matcher {
	m := &Matcher{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		if p = normalizeLabel(p); p != "" {
			m.phrases = append(m.phrases, p)
		}
	}
	return m
}

// Match reports whether label contains one of the phrases as whole words.
// "OK" matches "ok" but "Book now" does not.
func (m *Matcher) Match(label string) bool {
	label = normalizeLabel(label)
	if label == "" || len([]rune(label)) > maxLabelRunes {
		return false
	}
	for _, p := range m.phrases {
		if containsWord(label, p) {
			return true
		}
	}
	return false
}

// Len returns the number of phrases.
func (m *Matcher) Len() int { return len(m.phrases) }

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsWord reports whether phrase occurs in s bounded by non-word
// characters or the ends of s.
func containsWord(s, phrase string) bool {
	for from := 0; from <= len(s)-len(phrase); {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	for _, r := range s[i:] {
		return !isWordRune(r)
	}
	return true
}

func lastRune(s string) rune {
	rs := []rune(s)
	return rs[len(rs)-1]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
