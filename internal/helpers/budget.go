// SPDX-License-Identifier: AGPL-3.0-only
package helpers

import "unicode/utf8"

const (
	Ellipsis          = "..."
	TitleBudget       = 256
	DescriptionBudget = 2048
)

// FitText shortens a so that a and its companion b together stay within
// size characters. When a is cut, the result plus b is exactly size
// characters and ends with Ellipsis. Budgets smaller than b plus the
// marker degrade to the bare marker.
func FitText(a, b string, size int) string {
	aLen := utf8.RuneCountInString(a)
	bLen := utf8.RuneCountInString(b)

	if aLen+bLen <= size {
		return a
	}

	keep := size - bLen - utf8.RuneCountInString(Ellipsis)
	if keep < 0 {
		keep = 0
	}

	return string([]rune(a)[:keep]) + Ellipsis
}
