// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match implements title/author normalization and the pure
// classification of backend results into a final validation status.
package match

import (
	"strings"
	"unicode"
)

// ligatures maps typographic ligatures that survive PDF extraction to
// their ASCII expansions.
var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "st",
	"ﬆ", "st",
)

// NormalizeTitle returns a lowercased, punctuation-stripped,
// whitespace-collapsed version of the title.
func NormalizeTitle(title string) string {
	title = ligatures.Replace(title)
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitlesMatch reports whether two titles are equal after normalization.
func TitlesMatch(a, b string) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	return na != "" && na == nb
}

// WordCount returns the number of words in the normalized title.
func WordCount(title string) int {
	n := NormalizeTitle(title)
	if n == "" {
		return 0
	}
	return len(strings.Fields(n))
}

// QueryWords returns up to max significant title words for building search
// queries. Words shorter than three characters are skipped unless nothing
// longer exists.
func QueryWords(title string, max int) []string {
	fields := strings.Fields(NormalizeTitle(title))
	var words []string
	for _, w := range fields {
		if len(w) >= 3 {
			words = append(words, w)
		}
		if len(words) == max {
			return words
		}
	}
	if len(words) == 0 {
		if len(fields) > max {
			return fields[:max]
		}
		return fields
	}
	return words
}

// IsBareURL reports whether the citation's raw text is just a URL.
func IsBareURL(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") ||
		strings.HasPrefix(l, "https://") ||
		strings.HasPrefix(l, "www.")
}

// Surname extracts the normalized surname from a full author name: the
// last whitespace-separated token, lowercased, punctuation stripped.
func Surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	var b strings.Builder
	for _, r := range strings.ToLower(last) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// surnameSet builds the set of normalized surnames for an author list.
func surnameSet(authors []string) map[string]struct{} {
	set := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		if s := Surname(a); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// AuthorOverlap returns the fraction of cited surnames present in the
// found author list. An empty cited author list yields 0.
func AuthorOverlap(cited, found []string) float64 {
	citedSet := surnameSet(cited)
	if len(citedSet) == 0 {
		return 0
	}
	foundSet := surnameSet(found)
	common := 0
	for s := range citedSet {
		if _, ok := foundSet[s]; ok {
			common++
		}
	}
	return float64(common) / float64(len(citedSet))
}
