package capture

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
)

func msg(id, text string) domaincapture.Message {
	return domaincapture.Message{ID: id, Role: domaincapture.RoleUser, Text: text}
}

func messageIDs(conv *domaincapture.Conversation) []string {
	ids := make([]string, len(conv.Messages))
	for i, m := range conv.Messages {
		ids[i] = m.ID
	}
	return ids
}

// 重复合并同一观测不改变结果
func TestStore_UpsertIdempotent(t *testing.T) {
	store := NewStore(nil)

	conv := &domaincapture.Conversation{
		ID:             "c1",
		Platform:       domaincapture.PlatformClaude,
		Title:          "Greetings",
		CreatedAt:      1700000000000,
		UpdatedAt:      1700000100000,
		OrgID:          "org1",
		Messages:       []domaincapture.Message{msg("m1", "hello"), msg("m2", "hi there")},
		HasFullHistory: true,
		LastSeenAt:     1700000200000,
	}

	first := store.Upsert(conv)
	second := store.Upsert(conv)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Count())
}

// 时间范围、消息数与完整历史标记在任意合并顺序下单调不降
func TestStore_MergeMonotonic(t *testing.T) {
	listEntry := &domaincapture.Conversation{
		ID:         "c1",
		Platform:   domaincapture.PlatformChatGPT,
		Title:      "New title",
		CreatedAt:  1700000000000,
		UpdatedAt:  1700000500000,
		LastSeenAt: 1700000500000,
	}
	detail := &domaincapture.Conversation{
		ID:             "c1",
		Platform:       domaincapture.PlatformChatGPT,
		Title:          "Old title",
		CreatedAt:      1699999000000,
		UpdatedAt:      1700000100000,
		Messages:       []domaincapture.Message{msg("m1", "a"), msg("m2", "b")},
		HasFullHistory: true,
		LastSeenAt:     1700000100000,
	}
	domScan := &domaincapture.Conversation{
		ID:         "c1",
		Platform:   domaincapture.PlatformChatGPT,
		Messages:   []domaincapture.Message{msg("m1", "a"), msg("m3", "c")},
		LastSeenAt: 1700000300000,
	}

	observations := []*domaincapture.Conversation{listEntry, detail, domScan}
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		store := NewStore(nil)
		order := rng.Perm(len(observations))
		for _, i := range order {
			store.Upsert(observations[i])
		}

		conv, ok := store.Get(domaincapture.ConversationKey{Platform: domaincapture.PlatformChatGPT, ID: "c1"})
		require.True(t, ok)

		// 任意顺序下最终状态一致的部分
		assert.Equal(t, int64(1699999000000), conv.CreatedAt, "创建时间取最小值")
		assert.Equal(t, int64(1700000500000), conv.UpdatedAt, "更新时间取最大值")
		assert.Equal(t, int64(1700000500000), conv.LastSeenAt)
		assert.True(t, conv.HasFullHistory, "完整历史标记不得回退")
		assert.Len(t, conv.Messages, 3, "三条不同消息都必须保留")
	}
}

// 部分观测不得丢弃既有消息：[m1,m2] 之后合并 [m1,m3]，m2 仍在
func TestStore_NoMessageLoss(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("m1", "first"), msg("m2", "second")},
	})
	merged := store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("m1", "first"), msg("m3", "third")},
	})

	assert.Equal(t, []string{"m1", "m3", "m2"}, messageIDs(merged))
}

// 双方都只有部分历史时，较长列表的顺序为基准
// 迟到的尾部片段不得打乱先前捕获的较长列表
func TestStore_LongerPartialListOrderWins(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("a", "1"), msg("b", "2"), msg("c", "3")},
	})
	merged := store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("c", "3"), msg("x", "4")},
	})

	assert.Equal(t, []string{"a", "b", "c", "x"}, messageIDs(merged))

	// 反向：较长的列表后到，同样以它为基准
	store2 := NewStore(nil)
	store2.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("c", "3"), msg("x", "4")},
	})
	merged = store2.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("a", "1"), msg("b", "2"), msg("c", "3")},
	})

	assert.Equal(t, []string{"a", "b", "c", "x"}, messageIDs(merged))
}

// detail 观测的消息顺序为权威顺序
func TestStore_DetailOrderAuthoritative(t *testing.T) {
	store := NewStore(nil)

	// DOM 扫描先到，顺序可能不完整
	store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("m2", "later"), msg("m1", "earlier")},
	})
	merged := store.Upsert(&domaincapture.Conversation{
		ID:             "c1",
		Platform:       domaincapture.PlatformClaude,
		Messages:       []domaincapture.Message{msg("m1", "earlier"), msg("m2", "later"), msg("m3", "newest")},
		HasFullHistory: true,
	})

	assert.Equal(t, []string{"m1", "m2", "m3"}, messageIDs(merged))

	// 完整历史确立后，后续部分观测不得打乱顺序
	merged = store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformClaude,
		Messages: []domaincapture.Message{msg("m3", "newest"), msg("m4", "freshest")},
	})
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, messageIDs(merged))
	assert.True(t, merged.HasFullHistory)
}

// ID 相同的消息保留较长文本（截断预览不得覆盖全文）
func TestStore_LongerTextWins(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformChatGPT,
		Messages: []domaincapture.Message{msg("m1", "the complete message text")},
	})
	merged := store.Upsert(&domaincapture.Conversation{
		ID:       "c1",
		Platform: domaincapture.PlatformChatGPT,
		Messages: []domaincapture.Message{msg("m1", "the complete…")},
	})

	assert.Equal(t, "the complete message text", merged.Messages[0].Text)
}

// 标题：新观测非空则采用；组织 ID：既有值优先
func TestStore_TitleAndOrgRules(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{
		ID: "c1", Platform: domaincapture.PlatformClaude,
		Title: "Original", OrgID: "org1",
	})
	merged := store.Upsert(&domaincapture.Conversation{
		ID: "c1", Platform: domaincapture.PlatformClaude,
		OrgID: "org2",
	})
	assert.Equal(t, "Original", merged.Title, "空标题不覆盖既有标题")
	assert.Equal(t, "org1", merged.OrgID, "既有组织 ID 优先")

	merged = store.Upsert(&domaincapture.Conversation{
		ID: "c1", Platform: domaincapture.PlatformClaude,
		Title: "Renamed",
	})
	assert.Equal(t, "Renamed", merged.Title)
}

func TestStore_ComputeStats(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{
		ID: "c1", Platform: domaincapture.PlatformClaude,
		Messages:   []domaincapture.Message{msg("m1", "a"), msg("m2", "b")},
		LastSeenAt: 1700000100000,
	})
	store.Upsert(&domaincapture.Conversation{
		ID: "c2", Platform: domaincapture.PlatformChatGPT,
		LastSeenAt: 1700000200000,
	})

	stats := store.ComputeStats()
	assert.Equal(t, 2, stats.TotalConversations)
	assert.Equal(t, 1, stats.ConversationsWithMessages)
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, int64(1700000200000), stats.LastCapturedAt)
}

// 不同平台的同名 ID 互不干扰
func TestStore_KeyIsolation(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{ID: "c1", Platform: domaincapture.PlatformClaude, Title: "claude side"})
	store.Upsert(&domaincapture.Conversation{ID: "c1", Platform: domaincapture.PlatformChatGPT, Title: "chatgpt side"})

	assert.Equal(t, 2, store.Count())

	conv, ok := store.Get(domaincapture.ConversationKey{Platform: domaincapture.PlatformClaude, ID: "c1"})
	require.True(t, ok)
	assert.Equal(t, "claude side", conv.Title)
}

func TestStore_GetAllOrder(t *testing.T) {
	store := NewStore(nil)

	store.Upsert(&domaincapture.Conversation{ID: "old", Platform: domaincapture.PlatformClaude, UpdatedAt: 100})
	store.Upsert(&domaincapture.Conversation{ID: "new", Platform: domaincapture.PlatformClaude, UpdatedAt: 300})
	store.Upsert(&domaincapture.Conversation{ID: "mid", Platform: domaincapture.PlatformChatGPT, UpdatedAt: 200})

	all := store.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "mid", all[1].ID)
	assert.Equal(t, "old", all[2].ID)

	claude := store.GetByPlatform(domaincapture.PlatformClaude)
	require.Len(t, claude, 2)
	assert.Equal(t, "new", claude[0].ID)
}
