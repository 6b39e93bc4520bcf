package translator

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	LanguageEn = "en"
	LanguageFr = "fr"
)

//go:embed locales/*.toml
var embedded embed.FS

var (
	Translator *i18n.Bundle
	matcher    = language.NewMatcher([]language.Tag{language.English, language.French})
)

func init() {
	if err := LoadEmbedded(); err != nil {
		panic(err)
	}
}

// LoadEmbedded installs the bundles compiled into the binary.
func LoadEmbedded() error {
	return InitTranslator(embedded, "locales")
}

// InitTranslator replaces the bundle with the TOML files found in dir of
// fsys. Files that fail to parse are logged and skipped.
func InitTranslator(fsys fs.FS, dir string) error {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("listing translation folder %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(fsys, path.Join(dir, e.Name())); err != nil {
			zap.L().Warn("failed to load translation file", zap.String("file", e.Name()), zap.Error(err))
		}
	}

	Translator = bundle
	return nil
}

// MatchLanguage picks the supported language closest to an Accept-Language
// header value. Unknown or empty input yields English.
func MatchLanguage(acceptLanguage string) string {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()
	if base.String() == LanguageFr {
		return LanguageFr
	}
	return LanguageEn
}

// Localize returns the message for id in lang, or id itself when no bundle
// has it.
func Localize(id, lang string, data map[string]interface{}) string {
	l := i18n.NewLocalizer(Translator, lang, LanguageEn)
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		zap.L().Warn("translation not found", zap.String("lang", lang), zap.String("message_id", id), zap.Error(err))
		return id
	}
	return msg
}
