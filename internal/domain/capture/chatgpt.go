package capture

import (
	"encoding/json"
	"time"
)

// ChatGPT 响应解析。
// list 载荷历史上出现过裸数组和 {items:[...]} 两种形状；
// detail 载荷以 mapping 树存储编辑历史（节点 → parent 指针），
// current_node 指向当前分支的叶子，只有该分支是"当前"会话。

// ParseChatGPTList 解析会话列表响应，返回仅含元数据的会话（无消息）
func ParseChatGPTList(raw []byte) []*Conversation {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil
	}

	items := asSlice(root)
	if items == nil {
		if m := asMap(root); m != nil {
			items = asSlice(m["items"])
		}
	}

	now := time.Now().UnixMilli()
	var conversations []*Conversation
	for _, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		id := firstString(entry, "id", "conversation_id", "uuid")
		if id == "" {
			continue
		}
		conversations = append(conversations, &Conversation{
			ID:         id,
			Platform:   PlatformChatGPT,
			Title:      firstString(entry, "title", "name"),
			CreatedAt:  firstTimestamp(entry, "create_time", "created_at"),
			UpdatedAt:  firstTimestamp(entry, "update_time", "updated_at"),
			LastSeenAt: now,
		})
	}
	return conversations
}

// ParseChatGPTDetail 解析会话详情响应，重建当前分支的完整消息历史
func ParseChatGPTDetail(id string, raw []byte) *Conversation {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil
	}
	m := asMap(root)
	if m == nil {
		return nil
	}

	conv := &Conversation{
		ID:             firstStringOr(m, id, "conversation_id", "id"),
		Platform:       PlatformChatGPT,
		Title:          firstString(m, "title"),
		CreatedAt:      firstTimestamp(m, "create_time", "created_at"),
		UpdatedAt:      firstTimestamp(m, "update_time", "updated_at"),
		HasFullHistory: true,
		LastSeenAt:     time.Now().UnixMilli(),
	}

	mapping := asMap(m["mapping"])
	if mapping == nil {
		return conv
	}

	currentNode, _ := m["current_node"].(string)
	if currentNode == "" {
		currentNode = findLeafNode(mapping)
	}

	// 从 current_node 沿 parent 链回溯到根，再反转得到时间顺序
	var chain []map[string]any
	visited := make(map[string]bool)
	for nodeID := currentNode; nodeID != "" && !visited[nodeID]; {
		visited[nodeID] = true
		node := asMap(mapping[nodeID])
		if node == nil {
			break
		}
		chain = append(chain, node)
		nodeID, _ = node["parent"].(string)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	for i, node := range chain {
		if msg := parseChatGPTNode(node, i); msg != nil {
			conv.Messages = append(conv.Messages, *msg)
		}
	}
	return conv
}

// parseChatGPTNode 将 mapping 节点转换为消息；无可提取文本时返回 nil
func parseChatGPTNode(node map[string]any, index int) *Message {
	payload := asMap(node["message"])
	if payload == nil {
		return nil
	}

	text := extractText(payload["content"])
	if text == "" {
		return nil
	}

	role := RoleAssistant
	author := asMap(payload["author"])
	if author != nil {
		role = NormalizeRole(firstString(author, "role"))
	} else if r := firstString(payload, "role"); r != "" {
		role = NormalizeRole(r)
	}

	msgID := firstString(payload, "id")
	if msgID == "" {
		msgID = firstString(node, "id")
	}
	if msgID == "" {
		msgID = ContentHashID(text, index)
	}

	name := ""
	if author != nil {
		name = firstString(author, "name")
	}
	if name == "" {
		name = AuthorName(PlatformChatGPT, role)
	}

	return &Message{ID: msgID, Role: role, Text: text, AuthorName: name}
}

// findLeafNode 在 current_node 缺失时选取一个叶子节点作为回溯起点
// 取未被任何节点引用为 parent 且消息时间最新的节点
func findLeafNode(mapping map[string]any) string {
	referenced := make(map[string]bool)
	for _, v := range mapping {
		if node := asMap(v); node != nil {
			if parent, ok := node["parent"].(string); ok {
				referenced[parent] = true
			}
		}
	}

	var best string
	var bestTime int64 = -1
	for nodeID, v := range mapping {
		if referenced[nodeID] {
			continue
		}
		node := asMap(v)
		if node == nil {
			continue
		}
		ts := int64(0)
		if payload := asMap(node["message"]); payload != nil {
			ts = firstTimestamp(payload, "create_time")
		}
		if ts > bestTime {
			best = nodeID
			bestTime = ts
		}
	}
	return best
}

// firstStringOr 依次尝试多个键，均无值时返回回退值
func firstStringOr(m map[string]any, fallback string, keys ...string) string {
	if s := firstString(m, keys...); s != "" {
		return s
	}
	return fallback
}
