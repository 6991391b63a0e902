package mcp

import (
	"context"
	"errors"
	"fmt"

	appexport "github.com/chatvault/backend/internal/application/export"
	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ConversationSummary 工具输出中的会话摘要
type ConversationSummary struct {
	ID             string `json:"id" jsonschema:"会话 ID"`
	Platform       string `json:"platform" jsonschema:"平台（chatgpt / claude）"`
	Title          string `json:"title,omitempty" jsonschema:"会话标题"`
	MessageCount   int    `json:"message_count" jsonschema:"已捕获的消息数量"`
	HasFullHistory bool   `json:"has_full_history" jsonschema:"是否已捕获完整历史"`
	UpdatedAt      int64  `json:"updated_at,omitempty" jsonschema:"最后活动时间（epoch 毫秒）"`
}

// MessageOutput 工具输出中的单条消息
type MessageOutput struct {
	ID     string `json:"id" jsonschema:"消息 ID"`
	Role   string `json:"role" jsonschema:"角色（user/assistant/system/tool）"`
	Author string `json:"author,omitempty" jsonschema:"展示名称"`
	Text   string `json:"text" jsonschema:"消息文本"`
}

func toSummary(conv *domaincapture.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:             conv.ID,
		Platform:       string(conv.Platform),
		Title:          conv.Title,
		MessageCount:   len(conv.Messages),
		HasFullHistory: conv.HasFullHistory,
		UpdatedAt:      conv.UpdatedAt,
	}
}

func toMessages(conv *domaincapture.Conversation) []MessageOutput {
	out := make([]MessageOutput, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		out = append(out, MessageOutput{
			ID:     msg.ID,
			Role:   string(msg.Role),
			Author: msg.AuthorName,
			Text:   msg.Text,
		})
	}
	return out
}

// ListConversationsInput list_conversations 工具输入
type ListConversationsInput struct {
	Platform string `json:"platform,omitempty" jsonschema:"平台过滤，chatgpt 或 claude，留空返回全部"`
}

// ListConversationsOutput list_conversations 工具输出
type ListConversationsOutput struct {
	Conversations []ConversationSummary `json:"conversations" jsonschema:"会话摘要列表"`
	Total         int                   `json:"total" jsonschema:"会话总数"`
}

// listConversationsTool 列出已捕获的会话
func (s *MCPServer) listConversationsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListConversationsInput,
) (*mcp.CallToolResult, ListConversationsOutput, error) {
	var convs []*domaincapture.Conversation
	switch input.Platform {
	case "":
		convs = s.store.GetAll()
	case string(domaincapture.PlatformChatGPT), string(domaincapture.PlatformClaude):
		convs = s.store.GetByPlatform(domaincapture.Platform(input.Platform))
	default:
		return nil, ListConversationsOutput{}, fmt.Errorf("unknown platform %q", input.Platform)
	}

	output := ListConversationsOutput{Total: len(convs)}
	for _, conv := range convs {
		output.Conversations = append(output.Conversations, toSummary(conv))
	}
	return nil, output, nil
}

// ActiveMessagesInput get_active_messages 工具输入（空输入）
type ActiveMessagesInput struct{}

// ActiveMessagesOutput get_active_messages 工具输出
type ActiveMessagesOutput struct {
	Conversation ConversationSummary `json:"conversation" jsonschema:"会话摘要"`
	Messages     []MessageOutput     `json:"messages" jsonschema:"按顺序排列的消息"`
}

// getActiveMessagesTool 获取活跃会话的消息
func (s *MCPServer) getActiveMessagesTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ActiveMessagesInput,
) (*mcp.CallToolResult, ActiveMessagesOutput, error) {
	conv, err := s.syncer.ActiveConversation()
	if err != nil {
		return nil, ActiveMessagesOutput{}, errors.New("no conversation is currently open in the browser")
	}

	return nil, ActiveMessagesOutput{
		Conversation: toSummary(conv),
		Messages:     toMessages(conv),
	}, nil
}

// RescanInput rescan 工具输入（空输入）
type RescanInput struct{}

// RescanOutput rescan 工具输出
type RescanOutput struct {
	Conversation ConversationSummary `json:"conversation" jsonschema:"补扫后的会话摘要"`
}

// rescanTool 主动补扫活跃会话
func (s *MCPServer) rescanTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RescanInput,
) (*mcp.CallToolResult, RescanOutput, error) {
	key := s.syncer.ActiveKey()
	if key == nil {
		return nil, RescanOutput{}, errors.New("no conversation is currently open in the browser")
	}

	if err := s.syncer.Rescan(ctx, *key); err != nil {
		return nil, RescanOutput{}, fmt.Errorf("rescan failed: %w", err)
	}

	conv, ok := s.store.Get(*key)
	if !ok {
		return nil, RescanOutput{}, errors.New("conversation disappeared during rescan")
	}
	return nil, RescanOutput{Conversation: toSummary(conv)}, nil
}

// ExportConversationInput export_conversation 工具输入
type ExportConversationInput struct {
	Platform       string `json:"platform" jsonschema:"平台，chatgpt 或 claude"`
	ConversationID string `json:"conversation_id" jsonschema:"会话 ID"`
	Format         string `json:"format,omitempty" jsonschema:"导出格式，markdown 或 json，默认 markdown"`
}

// ExportConversationOutput export_conversation 工具输出
type ExportConversationOutput struct {
	Format     string `json:"format" jsonschema:"实际使用的格式"`
	Content    string `json:"content" jsonschema:"渲染后的内容"`
	TokenCount int    `json:"token_count" jsonschema:"cl100k_base 口径的 Token 估算"`
}

// exportConversationTool 导出会话
func (s *MCPServer) exportConversationTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ExportConversationInput,
) (*mcp.CallToolResult, ExportConversationOutput, error) {
	key := domaincapture.ConversationKey{
		Platform: domaincapture.Platform(input.Platform),
		ID:       input.ConversationID,
	}

	result, err := s.exportService.Export(key, appexport.Format(input.Format))
	if err != nil {
		return nil, ExportConversationOutput{}, err
	}

	return nil, ExportConversationOutput{
		Format:     string(result.Format),
		Content:    result.Content,
		TokenCount: result.TokenCount,
	}, nil
}
