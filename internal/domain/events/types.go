// Package events 定义领域事件类型和接口
// 用于捕获管线内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 捕获相关事件类型
const (
	// ConversationUpdated 会话在存储中被创建或归并更新
	ConversationUpdated EventType = "capture.conversation.updated"
	// NavigationChanged 页面导航到了新的 URL
	NavigationChanged EventType = "capture.navigation.changed"
	// BridgeConnected 拦截器通过桥接通道完成就绪握手
	BridgeConnected EventType = "capture.bridge.connected"
	// BridgeDisconnected 拦截器连接断开
	BridgeDisconnected EventType = "capture.bridge.disconnected"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}

// Handler 事件处理器接口
type Handler interface {
	// HandleEvent 处理事件
	// 返回 error 仅用于日志记录，不会重试
	HandleEvent(event Event) error
}

// HandlerFunc 函数类型的处理器适配器
type HandlerFunc func(event Event) error

// HandleEvent 实现 Handler 接口
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// EventBus 事件总线接口
// 提供事件的发布和订阅功能
type EventBus interface {
	// Subscribe 订阅特定类型的事件，返回取消订阅的函数
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())

	// SubscribeMultiple 订阅多个类型的事件，返回取消所有订阅的函数
	SubscribeMultiple(eventTypes []EventType, handler Handler) (unsubscribe func())

	// Publish 异步发布事件
	Publish(event Event)

	// Close 关闭事件总线，等待已发布事件处理完成
	Close()
}
