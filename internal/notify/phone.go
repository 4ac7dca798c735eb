package notify

import "strings"

// NormalizePhone rewrites a phone number to international +<digits> form.
// Three input shapes are handled: "00" international prefix, a national
// number with a leading zero, and a bare national number. countryCode is
// the default country prefix, e.g. "+48". Numbers already in + form are
// returned with separators stripped.
func NormalizePhone(number, countryCode string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(number))

	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "00"):
		return "+" + cleaned[2:]
	case strings.HasPrefix(cleaned, "0"):
		return countryCode + cleaned[1:]
	default:
		return countryCode + cleaned
	}
}
