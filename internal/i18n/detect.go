package i18n

import (
	"os"
	"strings"
)

// DetectSystemLanguage picks the CLI language from ACCESSDECK_LANG or the
// usual POSIX locale variables.
func DetectSystemLanguage() string {
	for _, env := range []string{"ACCESSDECK_LANG", "LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		if val := os.Getenv(env); val != "" {
			return parseLocale(val)
		}
	}
	return fallbackLang
}

// parseLocale maps "es_MX.UTF-8" to "es" and "en-GB" to "en".
func parseLocale(locale string) string {
	if idx := strings.Index(locale, "."); idx != -1 {
		locale = locale[:idx]
	}
	locale = strings.ToLower(strings.TrimSpace(locale))
	if idx := strings.IndexAny(locale, "_-"); idx != -1 {
		locale = locale[:idx]
	}

	switch locale {
	case "es", "spanish", "español":
		return "es"
	case "en", "english", "c", "posix":
		return "en"
	}

	mu.RLock()
	_, ok := catalogues[locale]
	mu.RUnlock()
	if ok {
		return locale
	}
	return fallbackLang
}

// ParseAcceptLanguage returns the first supported language in an
// Accept-Language header such as "es-MX,es;q=0.9,en;q=0.8".
func ParseAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		if idx := strings.Index(part, ";"); idx != -1 {
			part = part[:idx]
		}
		part = strings.TrimSpace(part)
		if part == "" || part == "*" {
			continue
		}

		lang := parseLocale(part)
		mu.RLock()
		_, ok := catalogues[lang]
		mu.RUnlock()
		if ok && (lang != fallbackLang || strings.HasPrefix(strings.ToLower(part), "en")) {
			return lang
		}
	}
	return fallbackLang
}
