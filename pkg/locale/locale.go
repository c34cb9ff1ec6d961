// Package locale negotiates the site language (English or Italian).
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Italian = "it"
)

var (
	supported = []language.Tag{language.English, language.Italian}
	matcher   = language.NewMatcher(supported)
)

// Resolve picks the locale for a request: an explicit value wins, then the
// Accept-Language header, then the fallback.
func Resolve(explicit, acceptLanguage, fallback string) string {
	if loc, ok := Normalize(explicit); ok {
		return loc
	}
	if strings.TrimSpace(acceptLanguage) != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return base(supported[idx])
			}
		}
	}
	if loc, ok := Normalize(fallback); ok {
		return loc
	}
	return English
}

// Normalize maps a raw tag such as "it-IT" onto a supported locale.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return base(supported[idx]), true
}

func base(tag language.Tag) string {
	b, _ := tag.Base()
	return b.String()
}
