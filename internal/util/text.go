package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonKey = regexp.MustCompile(`[^a-z0-9]+`)
	reSpaces = regexp.MustCompile(`\s+`)
)

func FoldAccents(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}

// NormalizeKey turns a spreadsheet or table header into a record key:
// "Pró-Labore Extras" -> "pro_labore_extras".
func NormalizeKey(input string) string {
	s := strings.ToLower(FoldAccents(input))
	s = reNonKey.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(strings.ReplaceAll(input, "\u00A0", " "), " "))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func StringPtr(v string) *string { return &v }
