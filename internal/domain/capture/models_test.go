package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
	}{
		{"user", RoleUser},
		{"human", RoleUser},
		{"Human", RoleUser},
		{"assistant", RoleAssistant},
		{"system", RoleSystem},
		{"tool", RoleTool},
		{"function_call", RoleTool},
		{"", RoleAssistant},
		{"model", RoleAssistant}, // 未知角色默认为 assistant
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRole(tt.input))
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	// 10 位秒级时间戳放大为毫秒
	assert.Equal(t, int64(1700000000000), NormalizeTimestamp(1700000000))
	// 13 位毫秒级时间戳原样通过
	assert.Equal(t, int64(1700000000000), NormalizeTimestamp(1700000000000))
	// 非正值视为未知
	assert.Equal(t, int64(0), NormalizeTimestamp(0))
	assert.Equal(t, int64(0), NormalizeTimestamp(-5))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeText("  hello   world  "))
	assert.Equal(t, "a\nb", NormalizeText("a\r\nb"))
	assert.Equal(t, "a\n\nb", NormalizeText("a\n\n\n\nb"))
	assert.Equal(t, "", NormalizeText("   \n \t "))
}

func TestContentHashID_Stable(t *testing.T) {
	a := ContentHashID("same text", 3)
	b := ContentHashID("same text", 3)
	assert.Equal(t, a, b)

	// 不同位置或不同文本产生不同 ID
	assert.NotEqual(t, a, ContentHashID("same text", 4))
	assert.NotEqual(t, a, ContentHashID("other text", 3))
}

func TestAuthorName(t *testing.T) {
	assert.Equal(t, "You", AuthorName(PlatformClaude, RoleUser))
	assert.Equal(t, "Claude", AuthorName(PlatformClaude, RoleAssistant))
	assert.Equal(t, "ChatGPT", AuthorName(PlatformChatGPT, RoleAssistant))
	assert.Equal(t, "system", AuthorName(PlatformChatGPT, RoleSystem))
}
