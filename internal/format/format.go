// Package format renders dates, amounts and relative times for console
// payloads in the client's locale.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered for missing values.
const Placeholder = "-"

const defaultCurrency = "USD"

// Date formats t as a short date, e.g. "Feb 16, 2026" or "16. Feb. 2026".
func Date(locale string, t time.Time) string {
	if isGerman(locale) {
		return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[t.Month()-1], t.Year())
	}
	return t.Format("Jan 2, 2006")
}

// DateTime formats t as date plus time of day.
func DateTime(locale string, t time.Time) string {
	if isGerman(locale) {
		return Date(locale, t) + ", " + t.Format("15:04")
	}
	return t.Format("Jan 2, 2006, 3:04 PM")
}

// ParseDate accepts RFC 3339 timestamps and plain dates.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateString formats an optional backend date string, passing unparseable
// input through unchanged.
func DateString(locale string, value *string) string {
	if value == nil || *value == "" {
		return Placeholder
	}
	t, ok := ParseDate(*value)
	if !ok {
		return *value
	}
	return Date(locale, t)
}

// Amount formats an optional amount with its currency symbol, e.g. "$12.99"
// or "12,99 €". A missing or unknown currency falls back to USD; currencies
// without a known symbol use their ISO code.
func Amount(locale string, amount *float64, code *string) string {
	if amount == nil {
		return Placeholder
	}
	unitCode := defaultCurrency
	if code != nil && strings.TrimSpace(*code) != "" {
		unitCode = strings.ToUpper(strings.TrimSpace(*code))
	}
	unit, err := currency.ParseISO(unitCode)
	if err != nil {
		unit = currency.USD
	}

	p := message.NewPrinter(tagFor(locale))
	scale, _ := currency.Standard.Rounding(unit)
	value := p.Sprint(number.Decimal(*amount, number.Scale(scale)))
	symbol, ok := symbols[unit.String()]
	if !ok {
		symbol = unit.String() + " "
	}
	if isGerman(locale) {
		return value + " " + strings.TrimSpace(symbol)
	}
	return symbol + value
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// TimeAgo renders how long ago t was: "just now", "5m ago", "3h ago",
// "2d ago". Future times count as just now.
func TimeAgo(now time.Time, t *time.Time) string {
	if t == nil {
		return Placeholder
	}
	diff := now.Sub(*t)
	if diff < time.Minute {
		return "just now"
	}
	minutes := int(diff / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

// TimeUntil renders the time left until t: "2m 30s", "45s", or "now" once t
// has passed.
func TimeUntil(now time.Time, t *time.Time) string {
	if t == nil {
		return Placeholder
	}
	diff := t.Sub(now)
	if diff <= 0 {
		return "now"
	}
	seconds := int(diff / time.Second)
	if m := seconds / 60; m > 0 {
		return fmt.Sprintf("%dm %ds", m, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

var germanMonths = [...]string{"Jan.", "Feb.", "März", "Apr.", "Mai", "Juni", "Juli", "Aug.", "Sept.", "Okt.", "Nov.", "Dez."}

func isGerman(locale string) bool {
	base, _ := tagFor(locale).Base()
	return base.String() == "de"
}

func tagFor(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
