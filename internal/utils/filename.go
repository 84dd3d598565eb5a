package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameBytes = 255

var reservedStems = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// SanitizeFilename turns an untrusted upload name into something safe to
// store and echo back in Content-Disposition headers.
//
// The result is never empty, is at most 255 bytes, and has no leading or
// trailing dots or spaces. It contains none of <>:"/\|?* and no control or
// format characters (bidi overrides, zero-width spaces). Windows device
// names get "-file" appended to the stem ("con.txt" -> "con-file.txt").
// A short alphanumeric extension survives truncation.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			b.WriteRune('_')
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			b.WriteRune('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	clean := strings.Trim(b.String(), ". ")

	stem, ext := splitExt(clean)
	if reservedStems[strings.ToLower(stem)] {
		stem += "-file"
	}

	budget := maxFilenameBytes
	if ext != "" {
		budget -= len(ext) + 1
	}
	stem = strings.TrimRight(truncateBytes(stem, budget), ". ")
	if stem == "" {
		stem = "file"
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// splitExt separates a trailing extension of 1-16 ASCII alphanumerics.
// Anything else after the last dot stays part of the stem.
func splitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	cand := name[i+1:]
	if len(cand) > 16 {
		return name, ""
	}
	for i := 0; i < len(cand); i++ {
		c := cand[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return name, ""
		}
	}
	return name[:i], cand
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
