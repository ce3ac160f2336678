package validators

import "strings"

// NormalizePhone converts an Ivorian phone number to its +225 international
// form. Already-international numbers pass through; separators are dropped.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && digits.Len() == 0:
			digits.WriteRune(r)
		}
	}

	p := digits.String()
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+"):
		return p
	case strings.HasPrefix(p, "225"):
		return "+" + p
	default:
		return "+225" + p
	}
}
