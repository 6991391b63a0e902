package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaudeList_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"chat_conversations 字段", `{"chat_conversations": [{"uuid": "u1", "name": "Hello", "created_at": "2023-11-14T22:13:20Z"}]}`},
		{"conversations 字段", `{"conversations": [{"uuid": "u1", "name": "Hello", "created_at": "2023-11-14T22:13:20Z"}]}`},
		{"裸数组", `[{"uuid": "u1", "name": "Hello", "created_at": "2023-11-14T22:13:20Z"}]`},
		{"id/title 别名", `[{"id": "u1", "title": "Hello", "created_at": 1700000000}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			convs := ParseClaudeList("org1", []byte(tt.payload))
			require.Len(t, convs, 1)
			assert.Equal(t, "u1", convs[0].ID)
			assert.Equal(t, "Hello", convs[0].Title)
			assert.Equal(t, "org1", convs[0].OrgID)
			assert.Equal(t, PlatformClaude, convs[0].Platform)
			assert.Equal(t, int64(1700000000000), convs[0].CreatedAt)
			assert.False(t, convs[0].HasFullHistory)
		})
	}
}

func TestParseClaudeDetail_TextField(t *testing.T) {
	payload := `{
		"uuid": "u1",
		"name": "Chat",
		"chat_messages": [
			{"uuid": "m1", "sender": "human", "text": "hi there"},
			{"uuid": "m2", "sender": "assistant", "text": "hello"}
		]
	}`
	conv := ParseClaudeDetail("u1", "org1", []byte(payload))
	require.NotNil(t, conv)
	assert.True(t, conv.HasFullHistory)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "You", conv.Messages[0].AuthorName)
	assert.Equal(t, RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Claude", conv.Messages[1].AuthorName)
}

// content 块数组提取：多段文本以换行连接，非文本块跳过
func TestParseClaudeDetail_ContentBlocks(t *testing.T) {
	payload := `{
		"uuid": "u1",
		"messages": [
			{"uuid": "m1", "sender": "assistant", "content": [
				{"type": "text", "text": "part one"},
				{"type": "tool_use", "name": "search"},
				{"type": "text", "text": "part two"}
			]}
		]
	}`
	conv := ParseClaudeDetail("u1", "org1", []byte(payload))
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "part one\npart two", conv.Messages[0].Text)
}

// turns 字段名 + 无可恢复文本的消息被丢弃
func TestParseClaudeDetail_TurnsAndDrops(t *testing.T) {
	payload := `{
		"uuid": "u1",
		"turns": [
			{"uuid": "m1", "sender": "human", "text": "kept"},
			{"uuid": "m2", "sender": "assistant", "content": [{"type": "tool_use"}]}
		]
	}`
	conv := ParseClaudeDetail("u1", "", []byte(payload))
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "m1", conv.Messages[0].ID)
}

func TestParseClaudeDetail_IDStability(t *testing.T) {
	// uuid 缺失时回退到内容哈希，重复解析仍须稳定
	payload := `{"uuid": "u1", "chat_messages": [{"sender": "human", "text": "no uuid here"}]}`
	first := ParseClaudeDetail("u1", "", []byte(payload))
	second := ParseClaudeDetail("u1", "", []byte(payload))
	require.Len(t, first.Messages, 1)
	require.Len(t, second.Messages, 1)
	assert.Equal(t, first.Messages[0].ID, second.Messages[0].ID)
}

func TestParseClaudeDetail_Malformed(t *testing.T) {
	assert.Nil(t, ParseClaudeDetail("u1", "", []byte(`not json`)))
	assert.Nil(t, ParseClaudeDetail("u1", "", []byte(`[1,2,3]`)))

	// 消息字段缺失时仍返回元数据
	conv := ParseClaudeDetail("u1", "org1", []byte(`{"uuid": "u1", "name": "Empty"}`))
	require.NotNil(t, conv)
	assert.Equal(t, "Empty", conv.Title)
	assert.Empty(t, conv.Messages)
}
