package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/infrastructure/bridge"
	"github.com/chatvault/backend/internal/infrastructure/config"
)

type stubScanner struct {
	messages []domaincapture.Message
}

func (s *stubScanner) ScanSnapshot(platform domaincapture.Platform, html string) []domaincapture.Message {
	return s.messages
}

func newTestService(t *testing.T, scanner SnapshotScanner) (*Service, *Store, *AuthCache, *bridge.Relay) {
	t.Helper()

	store := NewStore(nil)
	auth := NewAuthCache()
	cfg := &config.CaptureConfig{
		ActivePollInterval: time.Hour,
		RescanCooldown:     time.Hour,
		RescanMaxRetries:   1,
		RescanTimeout:      time.Second,
		RescanBackoffBase:  time.Millisecond,
	}
	syncer := NewSynchronizer(store, auth, cfg)
	relay := bridge.NewRelay("chatvault-interceptor")

	svc := NewService(relay, store, auth, syncer, scanner, nil)
	svc.Start()
	return svc, store, auth, relay
}

// 列表响应经分类、解析后合并进存储
func TestService_NetworkListEnvelope(t *testing.T) {
	_, store, _, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{
		Kind:        bridge.KindNetwork,
		URL:         "https://claude.ai/api/organizations/org1/chat_conversations",
		Status:      200,
		ContentType: "application/json",
		Body: `[
			{"uuid": "c1", "name": "First", "updated_at": "2024-01-15T10:00:00Z"},
			{"uuid": "c2", "name": "Second"}
		]`,
		CapturedAt: 1700000000000,
	})

	assert.Equal(t, 2, store.Count())

	conv, ok := store.Get(domaincapture.ConversationKey{Platform: domaincapture.PlatformClaude, ID: "c1"})
	require.True(t, ok)
	assert.Equal(t, "First", conv.Title)
	assert.Equal(t, "org1", conv.OrgID)
	assert.Equal(t, int64(1700000000000), conv.LastSeenAt)
	assert.False(t, conv.HasFullHistory, "列表条目不含消息历史")
}

// detail 响应产生完整历史会话
func TestService_NetworkDetailEnvelope(t *testing.T) {
	_, store, _, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{
		Kind:   bridge.KindNetwork,
		URL:    "https://claude.ai/api/organizations/org1/chat_conversations/c1",
		Status: 200,
		Body: `{
			"uuid": "c1",
			"name": "Detailed",
			"chat_messages": [
				{"uuid": "m1", "sender": "human", "text": "question"},
				{"uuid": "m2", "sender": "assistant", "text": "answer"}
			]
		}`,
	})

	conv, ok := store.Get(domaincapture.ConversationKey{Platform: domaincapture.PlatformClaude, ID: "c1"})
	require.True(t, ok)
	assert.True(t, conv.HasFullHistory)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, domaincapture.RoleUser, conv.Messages[0].Role)
}

// 无关 URL 与非 2xx 响应被忽略
func TestService_IgnoresIrrelevantEnvelopes(t *testing.T) {
	_, store, _, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{
		Kind: bridge.KindNetwork, URL: "https://claude.ai/api/account", Status: 200, Body: `{}`,
	})
	relay.Publish(&bridge.Envelope{
		Kind: bridge.KindNetwork, URL: "https://claude.ai/api/organizations/org1/chat_conversations", Status: 500, Body: `[]`,
	})
	relay.Publish(&bridge.Envelope{
		Kind: bridge.KindNetwork, URL: "https://claude.ai/api/organizations/org1/chat_conversations", Status: 200, Body: `<html>login</html>`,
	})

	assert.Equal(t, 0, store.Count())
}

// 200 以外的 2xx 状态码同样进入解析管线
func TestService_AcceptsNon200Success(t *testing.T) {
	_, store, _, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{
		Kind:   bridge.KindNetwork,
		URL:    "https://claude.ai/api/organizations/org1/chat_conversations",
		Status: 206,
		Body:   `[{"uuid": "c1", "name": "Partial content"}]`,
	})

	conv, ok := store.Get(domaincapture.ConversationKey{Platform: domaincapture.PlatformClaude, ID: "c1"})
	require.True(t, ok)
	assert.Equal(t, "Partial content", conv.Title)
}

// 凭证信封填充认证缓存（请求头、显式 org、页面内嵌状态）
func TestService_AuthEnvelopes(t *testing.T) {
	_, _, auth, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{Kind: bridge.KindAuth, AuthToken: "Bearer sk-secret"})
	assert.Equal(t, "sk-secret", auth.Token())

	relay.Publish(&bridge.Envelope{
		Kind:      bridge.KindAuth,
		PageState: `{"account": {"memberships": [{"organization": {"uuid": "org-from-page"}}]}}`,
	})
	assert.Equal(t, "org-from-page", auth.OrgID())

	// 显式 org 覆盖页面提取值
	relay.Publish(&bridge.Envelope{Kind: bridge.KindAuth, OrgID: "org-explicit"})
	assert.Equal(t, "org-explicit", auth.OrgID())
}

// 网络信封顺带捕获凭证与路径中的组织 ID
func TestService_NetworkEnvelopeCapturesAuth(t *testing.T) {
	_, _, auth, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{
		Kind:      bridge.KindNetwork,
		URL:       "https://claude.ai/api/organizations/org9/chat_conversations",
		Status:    200,
		Body:      `[]`,
		AuthToken: "Bearer tok-1",
	})

	assert.Equal(t, "tok-1", auth.Token())
	assert.Equal(t, "org9", auth.OrgID())
}

// DOM 快照经扫描器进入合并路径，不标记完整历史
func TestService_DOMEnvelope(t *testing.T) {
	scanner := &stubScanner{messages: []domaincapture.Message{
		{ID: "m1", Role: domaincapture.RoleUser, Text: "from dom"},
	}}
	_, store, _, relay := newTestService(t, scanner)

	relay.Publish(&bridge.Envelope{
		Kind: bridge.KindDOM,
		URL:  "https://claude.ai/chat/c1",
		HTML: "<main>snapshot</main>",
	})

	conv, ok := store.Get(domaincapture.ConversationKey{Platform: domaincapture.PlatformClaude, ID: "c1"})
	require.True(t, ok)
	assert.False(t, conv.HasFullHistory)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "from dom", conv.Messages[0].Text)
}

// 导航信封更新活跃会话
func TestService_NavigationEnvelope(t *testing.T) {
	svc, _, _, relay := newTestService(t, nil)

	relay.Publish(&bridge.Envelope{
		Kind: bridge.KindNavigation,
		URL:  "https://chatgpt.com/c/nav-target",
	})

	key := svc.syncer.ActiveKey()
	require.NotNil(t, key)
	assert.Equal(t, "nav-target", key.ID)
}

func TestAuthCache_TokenSourcePriority(t *testing.T) {
	auth := NewAuthCache()
	auth.ObserveAuthHeader("Bearer cached")
	auth.SetTokenSource(func() (string, string) { return "injected", "org-injected" })

	assert.Equal(t, "injected", auth.Token())
	assert.Equal(t, "org-injected", auth.OrgID())
}
