package analytics

import (
	"strings"
	"time"

	"github.com/louisbranch/formledger/internal/services/forms/i18n"
)

const (
	relativeDayLimit = 30
	defaultShortID   = 8
)

// FormatTimestamp renders t with the default locale's layout.
func FormatTimestamp(t time.Time) string {
	return defaultLocalizer.FormatTimestamp(t)
}

// RelativeTime renders t relative to now in the default locale.
func RelativeTime(t, now time.Time) string {
	return defaultLocalizer.RelativeTime(t, now)
}

// FormatTimestamp renders t in its own location with the locale's date and
// time layout.
func (l Localizer) FormatTimestamp(t time.Time) string {
	return t.Format(l.sprintf(i18n.DisplayTimestampLayout))
}

// RelativeTime renders how long ago t was, falling back to FormatTimestamp
// once t is a month or more in the past. Future times read as just now.
func (l Localizer) RelativeTime(t, now time.Time) string {
	elapsed := now.Sub(t)
	minutes := int(elapsed / time.Minute)
	hours := int(elapsed / time.Hour)
	days := hours / 24

	switch {
	case elapsed < time.Minute:
		return l.sprintf(i18n.DisplayJustNow)
	case hours == 0:
		return l.plural(minutes, i18n.DisplayMinuteAgo, i18n.DisplayMinutesAgo)
	case days == 0:
		return l.plural(hours, i18n.DisplayHourAgo, i18n.DisplayHoursAgo)
	case days < relativeDayLimit:
		return l.plural(days, i18n.DisplayDayAgo, i18n.DisplayDaysAgo)
	default:
		return l.FormatTimestamp(t)
	}
}

func (l Localizer) plural(n int, one, many string) string {
	if n == 1 {
		return l.sprintf(one, n)
	}
	return l.sprintf(many, n)
}

// TruncateText cuts text to max runes and appends an ellipsis when it was
// longer.
func TruncateText(text string, max int) string {
	runes := []rune(text)
	if max < 0 {
		max = 0
	}
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// ShortenID keeps the first and last length/2 characters of id. A length of
// zero or less uses 8.
func ShortenID(id string, length int) string {
	if length <= 0 {
		length = defaultShortID
	}
	if len(id) <= length {
		return id
	}
	half := length / 2
	return id[:half] + "..." + id[len(id)-half:]
}
