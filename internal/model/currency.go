package model

import (
	"math"
	"strconv"
	"strings"
)

// FormatKroner renders an amount the way the results screen shows it:
// rounded to whole kroner, "." as thousands separator, " kr." suffix.
func FormatKroner(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	b.WriteString(" kr.")
	return b.String()
}
