package capture

import (
	"encoding/json"
	"time"
)

// Claude 响应解析。
// list 载荷可能是 {chat_conversations:[...]}、{conversations:[...]} 或裸数组；
// detail 载荷的消息历史出现过 chat_messages、messages、turns 三种字段名，
// 消息文本则可能是 text 字符串或 content 块数组。

// ParseClaudeList 解析会话列表响应，返回仅含元数据的会话（无消息）
func ParseClaudeList(orgID string, raw []byte) []*Conversation {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil
	}

	items := asSlice(root)
	if items == nil {
		if m := asMap(root); m != nil {
			for _, key := range []string{"chat_conversations", "conversations", "items"} {
				if items = asSlice(m[key]); items != nil {
					break
				}
			}
		}
	}

	now := time.Now().UnixMilli()
	var conversations []*Conversation
	for _, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		id := firstString(entry, "uuid", "id")
		if id == "" {
			continue
		}
		conversations = append(conversations, &Conversation{
			ID:         id,
			Platform:   PlatformClaude,
			Title:      firstString(entry, "name", "title"),
			CreatedAt:  firstTimestamp(entry, "created_at", "create_time"),
			UpdatedAt:  firstTimestamp(entry, "updated_at", "update_time"),
			OrgID:      orgID,
			LastSeenAt: now,
		})
	}
	return conversations
}

// ParseClaudeDetail 解析会话详情响应，返回完整消息历史
func ParseClaudeDetail(id, orgID string, raw []byte) *Conversation {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil
	}
	m := asMap(root)
	if m == nil {
		return nil
	}

	conv := &Conversation{
		ID:             firstStringOr(m, id, "uuid", "id"),
		Platform:       PlatformClaude,
		Title:          firstString(m, "name", "title"),
		CreatedAt:      firstTimestamp(m, "created_at", "create_time"),
		UpdatedAt:      firstTimestamp(m, "updated_at", "update_time"),
		OrgID:          orgID,
		HasFullHistory: true,
		LastSeenAt:     time.Now().UnixMilli(),
	}

	var items []any
	for _, key := range []string{"chat_messages", "messages", "turns"} {
		if items = asSlice(m[key]); items != nil {
			break
		}
	}

	for i, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		if msg := parseClaudeMessage(entry, i); msg != nil {
			conv.Messages = append(conv.Messages, *msg)
		}
	}
	return conv
}

// parseClaudeMessage 将单条消息条目转换为消息；无可提取文本时返回 nil
func parseClaudeMessage(entry map[string]any, index int) *Message {
	// text 字段优先，content 块数组兜底
	text := ""
	if s, ok := entry["text"].(string); ok && s != "" {
		text = NormalizeText(s)
	}
	if text == "" {
		text = extractText(entry["content"])
	}
	if text == "" {
		return nil
	}

	role := NormalizeRole(firstString(entry, "sender", "role", "author"))

	msgID := firstString(entry, "uuid", "id")
	if msgID == "" {
		msgID = ContentHashID(text, index)
	}

	return &Message{
		ID:         msgID,
		Role:       role,
		Text:       text,
		AuthorName: AuthorName(PlatformClaude, role),
	}
}
