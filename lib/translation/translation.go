package translation

import (
	"github.com/leonelquinteros/gotext"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"strings"
)

const domain = "default"

// Configure loads the gettext catalogue for lang from dir and returns the
// language in use. Region and script subtags are dropped, so "de-AT" and
// "de_AT.UTF-8" both load the "de" catalogue. Missing catalogues are fine:
// Translate then falls back to the message id.
func Configure(dir, lang string) string {
	gotext.Configure(dir, baseLanguage(lang), domain)
	current := GetLanguage()
	log.Debugf("Using %q translations from %s", current, dir)
	return current
}

func baseLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

// GetLanguage returns the configured language, "en" when none is set.
func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
