package customers

import "strings"

// NormalizePhone reduces a phone number to a canonical ten-digit key.
// US numbers written with a leading country code collapse to ten digits.
// Anything with fewer than ten digits is not a usable key and returns "".
// The function is idempotent: normalizing an already-normalized key is a no-op.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) < 10 {
		return ""
	}
	if len(d) > 10 {
		// Extensions and junk suffixes: keep the leading ten digits.
		d = d[:10]
	}
	return d
}

// FormatPhone renders a normalized key as (XXX) XXX-XXXX for human-facing text.
func FormatPhone(normalized string) string {
	if len(normalized) != 10 {
		return normalized
	}
	return "(" + normalized[:3] + ") " + normalized[3:6] + "-" + normalized[6:]
}
