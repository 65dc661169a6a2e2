package i18n

import (
	"net/http"
	"strings"
)

const DefaultLocale = "en"

var supportedLocales = map[string]struct{}{
	"en": {},
	"de": {},
	"zh": {},
}

// LocaleFromRequest prefers an explicit ?lang= query value over Accept-Language.
func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return NormalizeLocale(lang)
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

// NormalizeLocale picks the first supported language from an
// Accept-Language style list, ignoring quality values and regions.
func NormalizeLocale(header string) string {
	if strings.TrimSpace(header) == "" {
		return DefaultLocale
	}

	for _, part := range strings.Split(header, ",") {
		lang := strings.TrimSpace(part)
		if lang == "" {
			continue
		}
		if idx := strings.Index(lang, ";"); idx >= 0 {
			lang = lang[:idx]
		}
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
			lang = lang[:idx]
		}
		if _, ok := supportedLocales[lang]; ok {
			return lang
		}
	}

	return DefaultLocale
}
