package orders

import (
	"strings"
	"time"
	"unicode"
)

// NormalizePhone brings a phone number to an E.164-like form. Exactly ten
// digits (after dropping everything else) get countryCode prefixed; any
// other input is returned trimmed, so "+1 555..." passes through.
func NormalizePhone(tel, countryCode string) string {
	if tel == "" {
		return ""
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tel)
	if len(digits) == 10 {
		return countryCode + digits
	}
	return strings.TrimSpace(tel)
}

// ParseEmails splits raw input on newlines and commas, trimming entries and
// dropping empty ones.
func ParseEmails(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimFunc(f, unicode.IsSpace); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// AutoFolio derives a folio from t with one-second resolution.
func AutoFolio(t time.Time) string {
	return t.Format(FolioLayout)
}
