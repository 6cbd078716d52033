package release

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// romanNumeralRegex matches II-IX after a space. Standalone I and X are left
// alone ("I Robot", "American History X").
var romanNumeralRegex = regexp.MustCompile(`(?i) (ii|iii|iv|v|vi|vii|viii|ix)\b`)

var romanToArabic = map[string]string{
	"ii": "2", "iii": "3", "iv": "4", "v": "5",
	"vi": "6", "vii": "7", "viii": "8", "ix": "9",
}

var leadingArticles = []string{"the ", "a ", "an "}

// CleanTitle normalizes a title for matching: lowercase, accents folded,
// leading articles dropped, roman numerals converted, punctuation removed.
func CleanTitle(title string) string {
	s := strings.ToLower(title)
	s = romanNumeralRegex.ReplaceAllStringFunc(s, func(m string) string {
		if arabic, ok := romanToArabic[strings.TrimSpace(m)]; ok {
			return " " + arabic
		}
		return m
	})
	s = foldAccents(s)
	s = strings.NewReplacer("&", " and ", "-", " ", "'", "", ".", " ", "_", " ").Replace(s)

	parts := strings.Split(s, ":")
	for i, part := range parts {
		parts[i] = stripLeadingArticle(part)
	}
	s = strings.Join(parts, " ")

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func stripLeadingArticle(s string) string {
	s = strings.TrimSpace(s)
	for _, art := range leadingArticles {
		if strings.HasPrefix(s, art) {
			return strings.TrimPrefix(s, art)
		}
	}
	return s
}
