// Package i18n holds the English and Spanish message catalogues used by the
// CLI, the log lines and the API error envelope.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

const fallbackLang = "en"

var (
	catalogues  map[string]map[string]string // lang -> key -> message
	mu          sync.RWMutex
	currentLang = fallbackLang
	loaded      bool
)

// Init loads every embedded locale. Safe to call more than once.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if loaded {
		return nil
	}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return err
	}
	catalogues = make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return err
		}
		var msgs map[string]string
		if err := json.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("locale %s: %w", e.Name(), err)
		}
		catalogues[strings.TrimSuffix(e.Name(), ".json")] = msgs
	}

	loaded = true
	return nil
}

// SetLanguage switches the process language. Unknown codes are ignored.
func SetLanguage(lang string) {
	lang = normalizeLanguage(lang)

	mu.Lock()
	defer mu.Unlock()
	if _, ok := catalogues[lang]; ok {
		currentLang = lang
	}
}

func GetLanguage() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// T translates key in the process language. Missing keys return the key.
// {{.Name}} placeholders are replaced from data.
func T(key string, data ...map[string]interface{}) string {
	mu.RLock()
	msgs := catalogues[currentLang]
	fallback := catalogues[fallbackLang]
	mu.RUnlock()

	return translate(msgs, fallback, key, data...)
}

// TLang translates key in lang, falling back to English.
func TLang(lang, key string, data ...map[string]interface{}) string {
	lang = normalizeLanguage(lang)

	mu.RLock()
	msgs := catalogues[lang]
	fallback := catalogues[fallbackLang]
	mu.RUnlock()

	return translate(msgs, fallback, key, data...)
}

func translate(msgs, fallback map[string]string, key string, data ...map[string]interface{}) string {
	msg, ok := msgs[key]
	if !ok {
		if msg, ok = fallback[key]; !ok {
			return key
		}
	}

	if len(data) > 0 && data[0] != nil {
		for k, v := range data[0] {
			msg = strings.ReplaceAll(msg, "{{."+k+"}}", fmt.Sprint(v))
		}
	}
	return msg
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case lang == "":
		return fallbackLang
	case strings.HasPrefix(lang, "es"):
		return "es"
	case strings.HasPrefix(lang, "en"):
		return "en"
	}

	mu.RLock()
	_, ok := catalogues[lang]
	mu.RUnlock()
	if ok {
		return lang
	}
	return fallbackLang
}

// SupportedLanguages returns the loaded language codes in sorted order.
func SupportedLanguages() []string {
	mu.RLock()
	defer mu.RUnlock()

	langs := make([]string, 0, len(catalogues))
	for lang := range catalogues {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
