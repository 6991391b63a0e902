// Package capture 定义会话捕获的领域模型和平台响应解析
// 所有模型均为纯数据结构，不依赖基础设施层
package capture

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Platform 聊天平台标识
type Platform string

const (
	// PlatformChatGPT ChatGPT 平台
	PlatformChatGPT Platform = "chatgpt"
	// PlatformClaude Claude 平台
	PlatformClaude Platform = "claude"
)

// Role 消息角色
type Role string

const (
	// RoleUser 用户消息
	RoleUser Role = "user"
	// RoleAssistant 助手消息
	RoleAssistant Role = "assistant"
	// RoleSystem 系统消息
	RoleSystem Role = "system"
	// RoleTool 工具/函数调用消息
	RoleTool Role = "tool"
)

// Message 会话中的单条消息
// ID 在单个会话内唯一，且对同一原始数据重复解析时保持稳定
type Message struct {
	// ID 消息标识（平台原生 ID，缺失时使用内容哈希）
	ID string `json:"id"`
	// Role 消息角色
	Role Role `json:"role"`
	// Text 归一化后的纯文本内容
	Text string `json:"text"`
	// AuthorName 展示名称（依平台和角色而定）
	AuthorName string `json:"authorName,omitempty"`
}

// ConversationKey 会话的全局唯一键
type ConversationKey struct {
	Platform Platform
	ID       string
}

// String 返回键的字符串形式（用于日志和存档主键）
func (k ConversationKey) String() string {
	return string(k.Platform) + ":" + k.ID
}

// Conversation 单个聊天线程的归并结果
type Conversation struct {
	// ID 平台侧的会话标识
	ID string `json:"id"`
	// Platform 来源平台
	Platform Platform `json:"platform"`
	// Title 最近一次观测到的标题（可能为空）
	Title string `json:"title,omitempty"`
	// CreatedAt 创建时间（epoch 毫秒，0 表示未知）
	CreatedAt int64 `json:"createdAt,omitempty"`
	// UpdatedAt 最后活动时间（epoch 毫秒，0 表示未知）
	UpdatedAt int64 `json:"updatedAt,omitempty"`
	// OrgID 组织标识（仅 Claude）
	OrgID string `json:"orgId,omitempty"`
	// Messages 按时间顺序排列的消息
	Messages []Message `json:"messages"`
	// HasFullHistory 是否来自完整历史的 detail 端点
	HasFullHistory bool `json:"hasFullHistory"`
	// LastSeenAt 最近一次观测时间（epoch 毫秒）
	LastSeenAt int64 `json:"lastSeenAt"`
}

// Key 返回会话的存储键
func (c *Conversation) Key() ConversationKey {
	return ConversationKey{Platform: c.Platform, ID: c.ID}
}

// ScannerStats 捕获统计（按需从存储投影计算，不单独持久化）
type ScannerStats struct {
	TotalConversations        int   `json:"totalConversations"`
	ConversationsWithMessages int   `json:"conversationsWithMessages"`
	TotalMessages             int   `json:"totalMessages"`
	LastCapturedAt            int64 `json:"lastCapturedAt"`
}

// NormalizeRole 将平台侧的角色字符串归一化为四值枚举
// 未知角色通过子串启发式归类，默认视为 assistant
func NormalizeRole(raw string) Role {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "human"), strings.Contains(s, "user"):
		return RoleUser
	case strings.Contains(s, "system"):
		return RoleSystem
	case strings.Contains(s, "tool"), strings.Contains(s, "function"):
		return RoleTool
	default:
		return RoleAssistant
	}
}

// AuthorName 返回平台/角色对应的展示名称
func AuthorName(platform Platform, role Role) string {
	if role == RoleUser {
		return "You"
	}
	if role == RoleAssistant {
		switch platform {
		case PlatformChatGPT:
			return "ChatGPT"
		case PlatformClaude:
			return "Claude"
		}
	}
	return string(role)
}

// NormalizeTimestamp 将数值时间戳归一化为 epoch 毫秒
// 小于 1e12 的值按秒处理并放大（10 位秒级时间戳到 2286 年才会超过该阈值）
func NormalizeTimestamp(v float64) int64 {
	if v <= 0 {
		return 0
	}
	if v < 1e12 {
		return int64(v * 1000)
	}
	return int64(v)
}

// NormalizeText 归一化消息文本：统一换行符，压缩行内空白，去除首尾空白
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		lines[i] = strings.Join(fields, " ")
	}
	// 压缩连续空行
	var out []string
	blank := false
	for _, line := range lines {
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ContentHashID 基于内容哈希生成回退消息 ID
// 附带位置索引以降低（但不消除）同文本消息的碰撞概率
func ContentHashID(text string, index int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("hash-%08x-%d", h.Sum32(), index)
}
