package utils

import (
	"strings"
	"unicode"
)

// SanitizeText 移除控制字符（保留换行符和制表符）并去除首尾空白
func SanitizeText(input string) string {
	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}
	return strings.TrimSpace(result.String())
}
