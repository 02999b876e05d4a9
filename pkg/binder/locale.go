package binder

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var separators sync.Map // language.Tag -> rune

// DecimalSeparator returns the decimal separator the locale formats numbers with.
func DecimalSeparator(tag language.Tag) rune {
	if v, ok := separators.Load(tag); ok {
		return v.(rune)
	}
	sep := '.'
	if strings.Contains(message.NewPrinter(tag).Sprintf("%.1f", 1.5), ",") {
		sep = ','
	}
	separators.Store(tag, sep)
	return sep
}

// ParseLocale parses a BCP 47 tag, falling back to the undetermined locale.
func ParseLocale(s string) language.Tag {
	if s == "" {
		return language.Und
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und
	}
	return tag
}

// normalizeDecimal rewrites a localized decimal literal to the canonical dot form.
// Under a comma locale both separators are accepted; mixing them is rejected.
func normalizeDecimal(s string, tag language.Tag) (string, bool) {
	s = strings.TrimSpace(s)
	if DecimalSeparator(tag) != ',' {
		return s, !strings.Contains(s, ",")
	}
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	if commas > 1 || (commas == 1 && dots > 0) {
		return "", false
	}
	return strings.Replace(s, ",", ".", 1), true
}
