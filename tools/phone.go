package tools

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizePhone canonicalizes a raw, locale-formatted number into digits-only
// international form so that different renderings of the same number compare
// equal (e.g. "0171 123456" vs "+49171123456" vs "0049171123456").
//
// Rules:
// - drop everything that is not a digit (the raw '+' only marks intl form)
// - "00..." prefix is the intl call prefix: strip it
// - a single leading "0" is local form: replace with the default country code
// - anything else is assumed to already carry its country code
func NormalizePhone(raw string, countryCode string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty phone")
	}

	intl := strings.HasPrefix(raw, "+")

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if phone == "" {
		return "", fmt.Errorf("no digits in phone %q", raw)
	}

	switch {
	case intl:
		// already international, digits are complete
	case strings.HasPrefix(phone, "00"):
		phone = phone[2:]
	case strings.HasPrefix(phone, "0"):
		phone = countryCode + phone[1:]
	}

	if len(phone) < 5 {
		return "", fmt.Errorf("invalid phone length: %d", len(phone))
	}
	return phone, nil
}
