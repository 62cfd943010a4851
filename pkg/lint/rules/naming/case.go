package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Style is a casing convention.
type Style string

// Casing styles.
const (
	KebabCase  Style = "kebab-case"
	SnakeCase  Style = "snake-case"
	CamelCase  Style = "camel-case"
	PascalCase Style = "pascal-case"
)

// styleAliases maps alternative variant spellings to their style.
var styleAliases = map[string]Style{
	string(KebabCase):  KebabCase,
	string(SnakeCase):  SnakeCase,
	string(CamelCase):  CamelCase,
	string(PascalCase): PascalCase,
	"snake_case":       SnakeCase,
	"camelCase":        CamelCase,
	"PascalCase":       PascalCase,
}

// SplitWords breaks a name into words at separators, case changes and
// letter/digit boundaries that start a capitalised word.
//
//	"My Note"        -> [My Note]
//	"myHTTPServer2"  -> [my HTTP Server2]
//	"daily_log-2024" -> [daily log 2024]
func SplitWords(s string) []string {
	runes := []rune(s)
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Convert renders name in the given style.
// Casers are stateful, so new ones are made per call.
func Convert(name string, style Style) string {
	words := SplitWords(name)
	if len(words) == 0 {
		return ""
	}
	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)

	out := make([]string, len(words))
	for i, w := range words {
		switch {
		case style == PascalCase, style == CamelCase && i > 0:
			out[i] = title.String(w)
		default:
			out[i] = lower.String(w)
		}
	}

	switch style {
	case SnakeCase:
		return strings.Join(out, "_")
	case CamelCase, PascalCase:
		return strings.Join(out, "")
	default:
		return strings.Join(out, "-")
	}
}
