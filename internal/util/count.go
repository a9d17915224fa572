package util

import (
	"strconv"
	"strings"
)

// ParseCount reads installment counts such as "3x", "12 parcelas" or "1".
// Only the first run of digits counts, so "12x de R$ 1.000" is 12.
func ParseCount(input string) (int, bool) {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	parsed, err := strconv.Atoi(b.String())
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
