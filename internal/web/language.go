package web

import (
	"context"
	"net/http"

	"AccessDeck/internal/i18n"
)

const languageKey contextKey = "language"

// LanguageMiddleware stores the request language in the context.
// X-Language wins over Accept-Language.
func LanguageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, SetLanguage(r, extractLanguage(r)))
	})
}

func extractLanguage(r *http.Request) string {
	if lang := r.Header.Get("X-Language"); lang != "" {
		return i18n.ParseAcceptLanguage(lang)
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return i18n.ParseAcceptLanguage(accept)
	}
	return "en"
}

// GetLanguage returns the request language, "en" when unset.
func GetLanguage(r *http.Request) string {
	if lang, ok := r.Context().Value(languageKey).(string); ok {
		return lang
	}
	return extractLanguage(r)
}

func SetLanguage(r *http.Request, lang string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), languageKey, lang))
}

// T translates key in the request language.
func T(r *http.Request, key string, data ...map[string]interface{}) string {
	return i18n.TLang(GetLanguage(r), key, data...)
}
