package translator_test

import (
	"testing"
	"testing/fstest"

	"taskflow/pkg/translator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedBundles(t *testing.T) {
	assert.Equal(t, "Task not found.", translator.Localize("taskNotFound", translator.LanguageEn, nil))
	assert.Equal(t, "Tâche introuvable.", translator.Localize("taskNotFound", translator.LanguageFr, nil))
}

func TestLocalize_FallsBackToEnglishThenKey(t *testing.T) {
	assert.Equal(t, "Task not found.", translator.Localize("taskNotFound", "de", nil))
	assert.Equal(t, "noSuchMessage", translator.Localize("noSuchMessage", translator.LanguageEn, nil))
}

func TestMatchLanguage(t *testing.T) {
	tests := map[string]string{
		"":                        translator.LanguageEn,
		"fr":                      translator.LanguageFr,
		"fr-CA,fr;q=0.9,en;q=0.8": translator.LanguageFr,
		"en-US,en;q=0.9":          translator.LanguageEn,
		"de-DE":                   translator.LanguageEn,
		"de;q=0.9, fr;q=0.5":      translator.LanguageFr,
		"this is not a lang list": translator.LanguageEn,
	}

	for header, want := range tests {
		assert.Equal(t, want, translator.MatchLanguage(header), "Accept-Language %q", header)
	}
}

func TestInitTranslator_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.toml":     {Data: []byte(`hello = "Hello {{.Name}}"`)},
		"i18n/broken.toml": {Data: []byte(`not = [valid`)},
	}

	t.Cleanup(func() { _ = translator.LoadEmbedded() })

	require.NoError(t, translator.InitTranslator(fsys, "i18n"))
	assert.Equal(t, "Hello Ada", translator.Localize("hello", translator.LanguageEn, map[string]interface{}{"Name": "Ada"}))

	assert.Error(t, translator.InitTranslator(fsys, "missing"))
}
