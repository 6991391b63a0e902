package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// PlatformContextID 捕获平台标识
	PlatformContextID = "platform"

	// ConversationContextID 会话 ID
	ConversationContextID = "conversation_id"

	// ClientContextID 桥接客户端 ID
	ClientContextID = "client_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithPlatform 在上下文中添加平台标识
func WithPlatform(ctx context.Context, platform string) context.Context {
	return context.WithValue(ctx, PlatformContextID, platform)
}

// WithConversationID 在上下文中添加会话 ID
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationContextID, conversationID)
}

// WithClientID 在上下文中添加桥接客户端 ID
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientContextID, clientID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	for _, key := range []string{RequestContextID, PlatformContextID, ConversationContextID, ClientContextID} {
		if v := ctx.Value(key); v != nil {
			if s, ok := v.(string); ok {
				attrs = append(attrs, slog.String(key, s))
			}
		}
	}

	return attrs
}
