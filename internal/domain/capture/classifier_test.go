package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform Platform
		kind     EndpointKind
		convID   string
		orgID    string
	}{
		{
			name:     "chatgpt 列表端点",
			url:      "https://chatgpt.com/backend-api/conversations",
			platform: PlatformChatGPT,
			kind:     KindList,
		},
		{
			name:     "chatgpt 详情端点",
			url:      "https://chatgpt.com/backend-api/conversation/abc-123",
			platform: PlatformChatGPT,
			kind:     KindDetail,
			convID:   "abc-123",
		},
		{
			name:     "claude 列表端点",
			url:      "https://claude.ai/api/organizations/org1/chat_conversations",
			platform: PlatformClaude,
			kind:     KindList,
			orgID:    "org1",
		},
		{
			name:     "claude 详情端点",
			url:      "https://claude.ai/api/organizations/org1/chat_conversations/uuid-1",
			platform: PlatformClaude,
			kind:     KindDetail,
			convID:   "uuid-1",
			orgID:    "org1",
		},
		{
			name:     "claude 旧版路径段",
			url:      "https://claude.ai/api/organizations/org2/conversations/uuid-9",
			platform: PlatformClaude,
			kind:     KindDetail,
			convID:   "uuid-9",
			orgID:    "org2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.url)
			require.NotNil(t, c)
			assert.Equal(t, tt.platform, c.Platform)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.convID, c.ConversationID)
			assert.Equal(t, tt.orgID, c.OrgID)
		})
	}
}

func TestClassify_Unmatched(t *testing.T) {
	urls := []string{
		"https://example.com/foo",
		"https://chatgpt.com/backend-api/conversation/abc/gen_title",
		"https://claude.ai/api/organizations/org1/chat_conversations/uuid-1/title",
		"https://chatgpt.com/",
		"",
	}
	for _, u := range urls {
		assert.Nil(t, Classify(u), "url %q 不应被分类", u)
	}
}

// 同源相对请求没有主机名，必须按路径形状回退推断平台
func TestClassify_RelativeURL(t *testing.T) {
	c := Classify("/backend-api/conversations?offset=0&limit=28")
	require.NotNil(t, c)
	assert.Equal(t, PlatformChatGPT, c.Platform)
	assert.Equal(t, KindList, c.Kind)

	c = Classify("/api/organizations/org1/chat_conversations/uuid-7")
	require.NotNil(t, c)
	assert.Equal(t, PlatformClaude, c.Platform)
	assert.Equal(t, KindDetail, c.Kind)
	assert.Equal(t, "uuid-7", c.ConversationID)
}

func TestClassify_QueryIgnored(t *testing.T) {
	c := Classify("https://chatgpt.com/backend-api/conversation/abc-123?foo=bar")
	require.NotNil(t, c)
	assert.Equal(t, KindDetail, c.Kind)
	assert.Equal(t, "abc-123", c.ConversationID)
}
