package i18n

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalesCoverSameKeys(t *testing.T) {
	require.NoError(t, Init())

	var en, es map[string]string
	data, err := localeFS.ReadFile("locales/en.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &en))
	data, err = localeFS.ReadFile("locales/es.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &es))

	for k := range en {
		assert.Contains(t, es, k)
	}
	for k := range es {
		assert.Contains(t, en, k)
	}
	assert.Equal(t, []string{"en", "es"}, SupportedLanguages())
}

func TestTLangSubstitutesNonStringValues(t *testing.T) {
	require.NoError(t, Init())

	got := TLang("en", MsgCheckReconciled, map[string]interface{}{
		"Confirmed": 2,
		"Estimated": 3,
		"Remaining": 1,
	})
	assert.Equal(t, "2 of 3 fixes confirmed, 1 issues remaining", got)
}

func TestTLangFallsBackToEnglishAndKey(t *testing.T) {
	require.NoError(t, Init())

	assert.Equal(t, "Failed to extract text.", TLang("fr", MsgErrOCRFailed))
	assert.Equal(t, "No se pudo extraer el texto.", TLang("es-MX", MsgErrOCRFailed))
	assert.Equal(t, "no.such.key", TLang("en", "no.such.key"))
}

func TestParseAcceptLanguage(t *testing.T) {
	require.NoError(t, Init())

	assert.Equal(t, "es", ParseAcceptLanguage("es-MX,es;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", ParseAcceptLanguage("fr-FR,en;q=0.5"))
	assert.Equal(t, "en", ParseAcceptLanguage(""))
}

func TestDetectSystemLanguage(t *testing.T) {
	require.NoError(t, Init())

	t.Setenv("ACCESSDECK_LANG", "es_ES.UTF-8")
	assert.Equal(t, "es", DetectSystemLanguage())

	t.Setenv("ACCESSDECK_LANG", "en_GB")
	assert.Equal(t, "en", DetectSystemLanguage())
}
