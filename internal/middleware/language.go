package middleware

import (
	"taskflow/pkg/translator"

	"github.com/gin-gonic/gin"
)

const langKey = "lang"

// LanguageMiddleware stores the best supported match for Accept-Language.
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(langKey, translator.MatchLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func GetLang(c *gin.Context) string {
	if lang, ok := c.Get(langKey); ok {
		if s, ok := lang.(string); ok {
			return s
		}
	}
	return translator.LanguageEn
}
