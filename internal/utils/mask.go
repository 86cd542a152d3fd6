package utils

import "strings"

// Mask hides all but the last four characters of value.
func Mask(value string) string {
	return MaskVisible(value, 4)
}

// MaskVisible hides all but the last visible characters of value. Values no
// longer than visible are returned unchanged.
func MaskVisible(value string, visible int) string {
	runes := []rune(value)
	if visible < 0 {
		visible = 0
	}
	if len(runes) <= visible {
		return value
	}
	hidden := len(runes) - visible
	return strings.Repeat("*", hidden) + string(runes[hidden:])
}
