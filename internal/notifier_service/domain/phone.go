package domain

import "strings"

// BrazilCountryCode is prefixed to every canonical phone number.
const BrazilCountryCode = "55"

// CanonicalPhone normalizes an Omie DDD + subscriber number pair into a
// digits-only, country-code-prefixed string suitable for the messaging
// provider. Returns "" when no digits can be derived. The ERP sometimes
// stores the whole number (DDD included, or even already 55-prefixed) in the
// subscriber field with an empty DDD; the same rules cover that case.
func CanonicalPhone(ddd, numero string) string {
	digits := onlyDigits(ddd) + onlyDigits(numero)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, BrazilCountryCode) && len(digits) >= 12 {
		// Already internationally prefixed; normalization is idempotent.
		return digits
	}
	return BrazilCountryCode + digits
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
