package domain

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ToID normalizes a name or alias into a lookup identity: accents folded,
// lowercased, and everything outside [a-z0-9] dropped.
func ToID(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Plural appends "s" to unit unless n is exactly one.
func Plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Countdown renders a duration in seconds as "N minute(s) and M second(s)",
// omitting a zero component.
func Countdown(seconds int) string {
	minutes, secs := seconds/60, seconds%60
	switch {
	case minutes > 0 && secs > 0:
		return Plural(minutes, "minute") + " and " + Plural(secs, "second")
	case minutes > 0:
		return Plural(minutes, "minute")
	default:
		return Plural(secs, "second")
	}
}
