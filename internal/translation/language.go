package translation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z]{2,3}([-_][A-Za-z0-9]{2,8})*$`)

var titleCaser = cases.Title(language.English)

// LanguageName turns a user supplied target language into the English name
// the model is given. Tags such as "si" or "fr-CA" become display names, free
// text is title-cased, and an empty value yields fallback.
func LanguageName(input, fallback string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		input = strings.TrimSpace(fallback)
	}
	if input == "" {
		return ""
	}
	if tagPattern.MatchString(input) {
		tag, err := language.Parse(strings.ReplaceAll(input, "_", "-"))
		if err == nil {
			if name := display.English.Tags().Name(tag); name != "" {
				return name
			}
		}
	}
	return titleCaser.String(strings.Join(strings.Fields(input), " "))
}
