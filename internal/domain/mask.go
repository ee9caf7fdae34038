package domain

import "strings"

const maskChar = "*"

// Mask hides the middle of an identifier. Short values keep at most their
// first character; four or more keep the first two and last two.
func Mask(value string) string {
	r := []rune(value)
	switch n := len(r); {
	case n <= 1:
		return value + maskChar
	case n == 2:
		return string(r[0]) + maskChar
	case n == 3:
		return string(r[0]) + maskChar + string(r[2])
	default:
		return string(r[:2]) + strings.Repeat(maskChar, n-4) + string(r[n-2:])
	}
}

// MaskEmail masks only the local part of an email address.
func MaskEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok {
		return Mask(email)
	}
	return Mask(local) + "@" + host
}
