package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	wordRE   = regexp.MustCompile(`[\p{L}\p{M}]+\p{N}*|\p{N}+`)
	phraseRE = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|«([^»]+)»`)
	foldCase = cases.Fold()
)

// fold lower-cases s and strips combining marks, so "Café" and "cafe"
// compare equal. The transformer chain is not safe for concurrent use and
// is built per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return foldCase.String(out)
}

// terms returns the folded word tokens of s minus stop words, in order and
// with repeats.
func terms(s string, stop map[string]struct{}) []string {
	words := wordRE.FindAllString(fold(s), -1)
	out := words[:0]
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}

// query is a parsed search string.
type query struct {
	terms   []string // unique, folded
	phrases []string // quoted spans, folded and whitespace-collapsed
}

func parseQuery(q string, stop map[string]struct{}) query {
	seen := make(map[string]struct{})
	var out query
	for _, t := range terms(q, stop) {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out.terms = append(out.terms, t)
		}
	}
	for _, m := range phraseRE.FindAllStringSubmatch(q, -1) {
		for _, g := range m[1:] {
			if p := collapse(fold(g)); p != "" {
				out.phrases = append(out.phrases, p)
			}
		}
	}
	return out
}

// collapse trims s and squeezes every whitespace run to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
