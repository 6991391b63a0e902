package capture

import (
	domaincapture "github.com/chatvault/backend/internal/domain/capture"
)

// Merge 将新观测合并进既有会话，返回新的会话快照
// 合并是保守的：任何一侧已有的信息（消息、完整历史标记、时间范围）
// 都不会因另一侧的缺失而丢失
//
// 规则：
//  1. 标题：新观测非空则采用，否则保留既有值
//  2. 创建时间：取双方非零值中的较小者
//  3. 更新时间：取较大者
//  4. 组织 ID：既有值优先，仅在缺失时采用新值
//  5. 消息：按 ID 对账，完整历史一侧的顺序为准（双方都不完整时
//     以较长列表为准），文本取较长者，
//     仅存在于另一侧的消息追加在末尾
//  6. HasFullHistory 单调不降，LastSeenAt 取较大者
func Merge(existing, incoming *domaincapture.Conversation) *domaincapture.Conversation {
	if existing == nil {
		return cloneConversation(incoming)
	}
	if incoming == nil {
		return cloneConversation(existing)
	}

	merged := &domaincapture.Conversation{
		ID:       existing.ID,
		Platform: existing.Platform,
	}

	merged.Title = existing.Title
	if incoming.Title != "" {
		merged.Title = incoming.Title
	}

	merged.CreatedAt = minNonZero(existing.CreatedAt, incoming.CreatedAt)
	merged.UpdatedAt = max64(existing.UpdatedAt, incoming.UpdatedAt)

	merged.OrgID = existing.OrgID
	if merged.OrgID == "" {
		merged.OrgID = incoming.OrgID
	}

	merged.Messages = mergeMessages(existing, incoming)
	merged.HasFullHistory = existing.HasFullHistory || incoming.HasFullHistory
	merged.LastSeenAt = max64(existing.LastSeenAt, incoming.LastSeenAt)

	return merged
}

// mergeMessages 按 ID 对账双方消息
// 以拥有完整历史的一侧为顺序基准；双方都只有部分历史时，
// 较长的列表信息更全，以其顺序为基准（等长时新观测优先）。
// 基准侧逐条保留，ID 相同时取文本较长的版本，
// 仅存在于另一侧的消息按其原有相对顺序追加在末尾
func mergeMessages(existing, incoming *domaincapture.Conversation) []domaincapture.Message {
	primary, secondary := incoming.Messages, existing.Messages
	switch {
	case existing.HasFullHistory && !incoming.HasFullHistory:
		primary, secondary = existing.Messages, incoming.Messages
	case !existing.HasFullHistory && !incoming.HasFullHistory &&
		len(existing.Messages) > len(incoming.Messages):
		primary, secondary = existing.Messages, incoming.Messages
	}

	if len(primary) == 0 {
		return cloneMessages(secondary)
	}
	if len(secondary) == 0 {
		return cloneMessages(primary)
	}

	secondaryByID := make(map[string]*domaincapture.Message, len(secondary))
	for i := range secondary {
		secondaryByID[secondary[i].ID] = &secondary[i]
	}

	merged := make([]domaincapture.Message, 0, len(primary)+len(secondary))
	seen := make(map[string]bool, len(primary))
	for _, msg := range primary {
		if other, ok := secondaryByID[msg.ID]; ok {
			if len(other.Text) > len(msg.Text) {
				msg.Text = other.Text
			}
			if msg.AuthorName == "" {
				msg.AuthorName = other.AuthorName
			}
		}
		merged = append(merged, msg)
		seen[msg.ID] = true
	}

	// 另一侧独有的消息不丢弃
	for _, msg := range secondary {
		if !seen[msg.ID] {
			merged = append(merged, msg)
		}
	}

	return merged
}

func cloneConversation(c *domaincapture.Conversation) *domaincapture.Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = cloneMessages(c.Messages)
	return &clone
}

func cloneMessages(msgs []domaincapture.Message) []domaincapture.Message {
	if msgs == nil {
		return nil
	}
	out := make([]domaincapture.Message, len(msgs))
	copy(out, msgs)
	return out
}

func minNonZero(a, b int64) int64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
