package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	titleNew      = "New chat"
	titleUntitled = "Untitled"

	defaultTitleRunes = 60
	maxTitleWords     = 8
)

var (
	// whitespaceRE collapses runs of whitespace in user supplied titles.
	whitespaceRE = regexp.MustCompile(`\s+`)
	// titleWordRE picks letter runs with an optional numeric tail ("gpt4").
	titleWordRE = regexp.MustCompile(`\p{L}+\p{N}*`)
)

var titleStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "were": true, "with": true,
}

// Titles holds the chat title rules shared by ChatService and
// MessageService. The zero value clips at 60 runes and cases generated
// titles in English.
type Titles struct {
	MaxRunes int
	Locale   language.Tag
}

// Clean collapses whitespace and clips s; a blank result becomes fallback.
func (t Titles) Clean(s, fallback string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		s = fallback
	}
	return t.clip(s)
}

// IsPlaceholder reports whether a chat title may be replaced by one
// generated from the first prompt.
func (Titles) IsPlaceholder(title string) bool {
	title = strings.TrimSpace(title)
	return title == "" || strings.EqualFold(title, titleNew) || strings.EqualFold(title, titleUntitled)
}

// FromPrompt summarises a prompt as up to eight title-cased words, skipping
// stop words. It returns "" when the prompt has no usable words.
func (t Titles) FromPrompt(prompt string) string {
	words := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(words) == 0 {
		return ""
	}
	loc := t.Locale
	if loc == language.Und {
		loc = language.English
	}
	caser := cases.Title(loc)

	kept := make([]string, 0, maxTitleWords)
	for _, w := range words {
		if titleStopWords[w] {
			continue
		}
		kept = append(kept, caser.String(w))
		if len(kept) == maxTitleWords {
			break
		}
	}
	return t.clip(strings.Join(kept, " "))
}

func (t Titles) clip(s string) string {
	n := t.MaxRunes
	if n <= 0 {
		n = defaultTitleRunes
	}
	return strings.TrimRightFunc(clipRunes(s, n), unicode.IsSpace)
}
