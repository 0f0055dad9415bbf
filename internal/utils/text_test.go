package utils_test

import (
	"testing"

	"github.com/mautops/claims-gin/internal/utils"
	"github.com/stretchr/testify/assert"
)

// TestSanitizeText 测试移除控制字符
func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Dr. Sarah Johnson  ", "Dr. Sarah Johnson"},
		{"line1\nline2\tend", "line1\nline2\tend"},
		{"bell\x07 and null\x00", "bell and null"},
		{"\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"讲师 课时", "讲师 课时"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utils.SanitizeText(tt.input))
	}
}
