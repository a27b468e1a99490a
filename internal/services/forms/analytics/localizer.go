package analytics

import (
	"github.com/louisbranch/formledger/internal/services/forms/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer renders analytics messages for one locale.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer returns a Localizer for the supported locale closest to tag.
func NewLocalizer(tag language.Tag) Localizer {
	tag = i18n.Match(tag.String())
	return Localizer{tag: tag, printer: i18n.Printer(tag)}
}

// Tag returns the resolved locale.
func (l Localizer) Tag() language.Tag {
	return l.tag
}

func (l Localizer) sprintf(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

var defaultLocalizer = NewLocalizer(i18n.Default())
