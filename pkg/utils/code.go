package utils

import (
	"regexp"
	"strings"
)

var codeChars = regexp.MustCompile("[^A-Z0-9]+")

// NormalizeCode turns a human-entered workflow code into its canonical
// stored form: upper-cased, non-alphanumerics collapsed to single
// underscores, trimmed.
func NormalizeCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = codeChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
