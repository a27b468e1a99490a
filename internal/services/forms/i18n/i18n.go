// Package i18n resolves the locale used for user-facing forms messages.
package i18n

import (
	"strings"

	"github.com/louisbranch/formledger/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	supported = []language.Tag{
		language.MustParse("en-US"),
		language.MustParse("pt-BR"),
	}
	matcher = language.NewMatcher(supported)
)

// Supported returns the locales with a full message catalog.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Default returns the fallback locale.
func Default() language.Tag {
	return supported[0]
}

// Match resolves a locale setting such as "pt", "pt-BR" or "en-GB,pt;q=0.5"
// to the closest supported tag. Unparseable input yields Default.
func Match(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	_, index, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supported[index]
}

// Printer returns a printer for tag backed by the embedded catalogs.
func Printer(tag language.Tag) *message.Printer {
	catalog.Default()
	return message.NewPrinter(tag)
}
