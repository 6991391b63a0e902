package events

import (
	"time"

	"github.com/chatvault/backend/internal/domain/capture"
)

// ConversationEvent 会话更新事件
// 存储每次对外可见的归并都会发布一次
type ConversationEvent struct {
	// EventType 固定为 ConversationUpdated
	EventType EventType
	// Key 被更新的会话键
	Key capture.ConversationKey
	// MessageCount 归并后的消息数量
	MessageCount int
	// HasFullHistory 归并后的完整历史标记
	HasFullHistory bool
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *ConversationEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *ConversationEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewConversationUpdated 创建会话更新事件
func NewConversationUpdated(conv *capture.Conversation) *ConversationEvent {
	return &ConversationEvent{
		EventType:      ConversationUpdated,
		Key:            conv.Key(),
		MessageCount:   len(conv.Messages),
		HasFullHistory: conv.HasFullHistory,
		EventTime:      time.Now(),
	}
}

// NavigationEvent 页面导航事件
// 拦截器在 SPA 路由变化时上报当前页面 URL
type NavigationEvent struct {
	// URL 当前页面完整 URL
	URL string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *NavigationEvent) Type() EventType {
	return NavigationChanged
}

// Timestamp 实现 Event 接口
func (e *NavigationEvent) Timestamp() time.Time {
	return e.EventTime
}

// BridgeEvent 桥接连接状态事件
type BridgeEvent struct {
	// EventType BridgeConnected 或 BridgeDisconnected
	EventType EventType
	// ClientID 连接标识
	ClientID string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *BridgeEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *BridgeEvent) Timestamp() time.Time {
	return e.EventTime
}
