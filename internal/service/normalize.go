package service

import (
	"strings"
	"unicode"
)

// NormalizeName lowercases s and keeps only ASCII letters and digits, so
// "Tan Mei", "tan-mei" and "TANMEI" all compare equal.
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if isNameRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// nameWords splits s into normalized words.
func nameWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isNameRune(r) && (unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r))
	})
}

// nameMatches reports whether the typed name identifies one of the
// "/"-separated names of a raw whitelist name field. A candidate matches
// when the normalized typed name is a substring of it, or when every word
// typed appears among the candidate's words in any order ("mei tan"
// matches "Tan Mei").
func nameMatches(typed, raw string) bool {
	want := NormalizeName(typed)
	if want == "" {
		return false
	}
	words := nameWords(typed)
	for _, candidate := range strings.Split(raw, "/") {
		if strings.Contains(NormalizeName(candidate), want) {
			return true
		}
		if wordsContained(words, nameWords(candidate)) {
			return true
		}
	}
	return false
}

func wordsContained(words, in []string) bool {
	if len(words) == 0 {
		return false
	}
	have := make(map[string]bool, len(in))
	for _, w := range in {
		have[NormalizeName(w)] = true
	}
	for _, w := range words {
		if n := NormalizeName(w); n != "" && !have[n] {
			return false
		}
	}
	return true
}
