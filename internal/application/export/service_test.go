package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcapture "github.com/chatvault/backend/internal/application/capture"
	domaincapture "github.com/chatvault/backend/internal/domain/capture"
)

func newTestService(t *testing.T) (*Service, domaincapture.ConversationKey) {
	t.Helper()

	store := appcapture.NewStore(nil)
	conv := &domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Title:    "Export me",
		OrgID:    "org1",
		Messages: []domaincapture.Message{
			{ID: "m1", Role: domaincapture.RoleUser, Text: "What is a goroutine?", AuthorName: "You"},
			{ID: "m2", Role: domaincapture.RoleAssistant, Text: "A lightweight thread.", AuthorName: "Claude"},
		},
		CreatedAt:      1700000000000,
		UpdatedAt:      1700000100000,
		HasFullHistory: true,
	}
	store.Upsert(conv)
	return NewService(store), conv.Key()
}

func TestService_ExportMarkdown(t *testing.T) {
	svc, key := newTestService(t)

	result, err := svc.Export(key, FormatMarkdown)
	require.NoError(t, err)

	assert.Equal(t, FormatMarkdown, result.Format)
	assert.Equal(t, 2, result.MessageCount)
	assert.Contains(t, result.Content, "# Export me")
	assert.Contains(t, result.Content, "## You")
	assert.Contains(t, result.Content, "What is a goroutine?")
	assert.Contains(t, result.Content, "## Claude")
	assert.Greater(t, result.TokenCount, 0)
}

func TestService_ExportJSON(t *testing.T) {
	svc, key := newTestService(t)

	result, err := svc.Export(key, FormatJSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content), &decoded))
	assert.Equal(t, "c1", decoded["id"])
	assert.Equal(t, "claude", decoded["platform"])
	assert.NotEmpty(t, decoded["exportedAt"])

	msgs, ok := decoded["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

// 格式缺省为 Markdown
func TestService_ExportDefaultFormat(t *testing.T) {
	svc, key := newTestService(t)

	result, err := svc.Export(key, "")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, result.Format)
}

func TestService_ExportErrors(t *testing.T) {
	svc, key := newTestService(t)

	_, err := svc.Export(domaincapture.ConversationKey{Platform: domaincapture.PlatformClaude, ID: "missing"}, FormatMarkdown)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.Export(key, Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
