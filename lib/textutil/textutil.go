package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func CollapseWhitespace(s string) string {
	s = strings.Trim(s, " \n\t")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// source fields are frequently abbreviated in one direction or the other
// ("911" vs "911 Carrera"), so containment has to run both ways
func ContainsEither(a, b string) bool {
	a = NormalizeName(a)
	b = NormalizeName(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
