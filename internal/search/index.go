// Package search ranks one user's chats against a free-text query. An Index
// is built per request from rows the caller already loaded, scored with
// Okapi BM25 over accent- and case-folded terms, and then discarded.
package search

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75

	// phraseBoost multiplies the score once per quoted phrase found verbatim.
	phraseBoost = 1.5
	// titleBoost favours chat titles over message bodies with equal terms.
	titleBoost = 1.25
)

// Document is one searchable unit: a chat title or a message body.
type Document struct {
	ID     string // message id, or the chat id for titles
	ChatID string
	Text   string
	Title  bool
}

// Result is a ranked document. Score is relative to the best hit of the
// same query, which scores 1.
type Result struct {
	DocID   string
	ChatID  string
	Snippet string
	Score   float64
}

type Option func(*config)

type config struct {
	stop         map[string]struct{}
	maxDocs      int
	snippetRunes int
}

// WithStopwords ignores words in both documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				if c.stop == nil {
					c.stop = make(map[string]struct{}, len(words))
				}
				c.stop[w] = struct{}{}
			}
		}
	}
}

// WithMaxDocs indexes at most n documents.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithSnippetRunes sets the excerpt width returned in Result.Snippet.
func WithSnippetRunes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.snippetRunes = n
		}
	}
}

type doc struct {
	Document
	text   string // whitespace-collapsed original
	folded string // folded text, for phrase matching
	tf     map[string]int
	length int
}

// Index is immutable after New and safe for concurrent searches.
type Index struct {
	cfg    config
	docs   []doc
	df     map[string]int
	avgLen float64
}

// New indexes docs. Documents without a single word are skipped.
func New(docs []Document, opts ...Option) *Index {
	cfg := config{snippetRunes: 160}
	for _, o := range opts {
		o(&cfg)
	}
	ix := &Index{cfg: cfg, df: make(map[string]int)}
	total := 0
	for _, d := range docs {
		text := collapse(d.Text)
		ts := terms(text, cfg.stop)
		if len(ts) == 0 {
			continue
		}
		tf := make(map[string]int, len(ts))
		for _, t := range ts {
			tf[t]++
		}
		for t := range tf {
			ix.df[t]++
		}
		ix.docs = append(ix.docs, doc{Document: d, text: text, folded: collapse(fold(text)), tf: tf, length: len(ts)})
		total += len(ts)
		if cfg.maxDocs > 0 && len(ix.docs) >= cfg.maxDocs {
			break
		}
	}
	if len(ix.docs) > 0 {
		ix.avgLen = float64(total) / float64(len(ix.docs))
	}
	return ix
}

// Len reports how many documents were indexed.
func (ix *Index) Len() int { return len(ix.docs) }

// Search returns up to k documents matching at least one query term or
// quoted phrase, best first. k <= 0 means 10.
func (ix *Index) Search(q string, k int) []Result {
	if k <= 0 {
		k = 10
	}
	pq := parseQuery(q, ix.cfg.stop)
	if len(ix.docs) == 0 || (len(pq.terms) == 0 && len(pq.phrases) == 0) {
		return nil
	}

	n := float64(len(ix.docs))
	idf := make(map[string]float64, len(pq.terms))
	for _, t := range pq.terms {
		df := float64(ix.df[t])
		idf[t] = math.Log(1 + (n-df+0.5)/(df+0.5))
	}

	type hit struct {
		d     *doc
		score float64
	}
	var hits []hit
	for i := range ix.docs {
		d := &ix.docs[i]
		s := 0.0
		norm := bm25K1 * (1 - bm25B + bm25B*float64(d.length)/ix.avgLen)
		for _, t := range pq.terms {
			if f := float64(d.tf[t]); f > 0 {
				s += idf[t] * f * (bm25K1 + 1) / (f + norm)
			}
		}
		phrases := 0
		for _, p := range pq.phrases {
			if strings.Contains(d.folded, p) {
				phrases++
			}
		}
		if s == 0 && phrases == 0 {
			continue
		}
		if s == 0 {
			// A phrase made only of stop words still counts.
			s = 0.01
		}
		s *= math.Pow(phraseBoost, float64(phrases))
		if d.Title {
			s *= titleBoost
		}
		hits = append(hits, hit{d, s})
	}
	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		if hits[a].d.length != hits[b].d.length {
			return hits[a].d.length < hits[b].d.length
		}
		return hits[a].d.ID < hits[b].d.ID
	})

	want := make(map[string]struct{}, len(pq.terms))
	for _, t := range pq.terms {
		want[t] = struct{}{}
	}
	top := hits[0].score
	out := make([]Result, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, Result{
			DocID:   h.d.ID,
			ChatID:  h.d.ChatID,
			Snippet: excerpt(h.d.text, want, ix.cfg.snippetRunes),
			Score:   h.score / top,
		})
	}
	return out
}

// BestPerChat keeps the first result of every chat, preserving order, and
// stops after limit chats.
func BestPerChat(results []Result, limit int) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, min(max(limit, 0), len(results)))
	for _, r := range results {
		if _, dup := seen[r.ChatID]; dup {
			continue
		}
		seen[r.ChatID] = struct{}{}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// excerpt returns at most width runes of text, opening a quarter width
// before the first word whose folded form is in want.
func excerpt(text string, want map[string]struct{}, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	start := 0
	for _, loc := range wordRE.FindAllStringIndex(text, -1) {
		if _, ok := want[fold(text[loc[0]:loc[1]])]; ok {
			start = utf8.RuneCountInString(text[:loc[0]])
			break
		}
	}
	start = max(0, min(start-width/4, len(runes)-width))
	out := string(runes[start : start+width])
	if start > 0 {
		out = "…" + out
	}
	if start+width < len(runes) {
		out += "…"
	}
	return out
}
