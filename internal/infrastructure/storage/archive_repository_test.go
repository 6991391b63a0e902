package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/backend/internal/domain/capture"
)

func newTestArchive(t *testing.T) ConversationArchive {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	archive, err := NewConversationArchive(db)
	require.NoError(t, err)
	return archive
}

func TestConversationArchive_SaveAndLoad(t *testing.T) {
	archive := newTestArchive(t)

	conv := &capture.Conversation{
		ID:       "c1",
		Platform: capture.PlatformClaude,
		Title:    "Archived",
		OrgID:    "org1",
		Messages: []capture.Message{
			{ID: "m1", Role: capture.RoleUser, Text: "hello"},
			{ID: "m2", Role: capture.RoleAssistant, Text: "hi"},
		},
		CreatedAt:  1700000000000,
		UpdatedAt:  1700000100000,
		LastSeenAt: 1700000200000,
	}
	require.NoError(t, archive.SaveSnapshot(conv))

	loaded, err := archive.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.Equal(t, "c1", loaded[0].ID)
	assert.Equal(t, capture.PlatformClaude, loaded[0].Platform)
	assert.Equal(t, "Archived", loaded[0].Title)
	assert.Equal(t, "org1", loaded[0].OrgID)
	require.Len(t, loaded[0].Messages, 2)
	assert.Equal(t, "hello", loaded[0].Messages[0].Text)
}

// 同键覆盖：重复保存保留最新快照
func TestConversationArchive_UpsertOverwrites(t *testing.T) {
	archive := newTestArchive(t)

	conv := &capture.Conversation{ID: "c1", Platform: capture.PlatformChatGPT, Title: "First"}
	require.NoError(t, archive.SaveSnapshot(conv))

	conv.Title = "Renamed"
	conv.Messages = []capture.Message{{ID: "m1", Role: capture.RoleUser, Text: "added"}}
	require.NoError(t, archive.SaveSnapshot(conv))

	count, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err := archive.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Renamed", loaded[0].Title)
	assert.Len(t, loaded[0].Messages, 1)
}

func TestConversationArchive_Delete(t *testing.T) {
	archive := newTestArchive(t)

	require.NoError(t, archive.SaveSnapshot(&capture.Conversation{ID: "c1", Platform: capture.PlatformClaude}))
	require.NoError(t, archive.Delete(capture.ConversationKey{Platform: capture.PlatformClaude, ID: "c1"}))

	count, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
