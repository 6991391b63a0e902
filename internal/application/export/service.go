// Package export 提供会话的 Markdown / JSON 导出
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	appcapture "github.com/chatvault/backend/internal/application/capture"
	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// Format 导出格式
type Format string

const (
	// FormatMarkdown Markdown 文档
	FormatMarkdown Format = "markdown"
	// FormatJSON 结构化 JSON
	FormatJSON Format = "json"
)

// ErrConversationNotFound 会话不存在
var ErrConversationNotFound = errors.New("conversation not found")

// ErrUnsupportedFormat 不支持的导出格式
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Result 导出结果
type Result struct {
	// Format 实际使用的格式
	Format Format `json:"format"`
	// Content 渲染后的内容
	Content string `json:"content"`
	// TokenCount cl100k_base 口径的 Token 估算（上下文规模提示）
	TokenCount int `json:"tokenCount"`
	// MessageCount 导出的消息数量
	MessageCount int `json:"messageCount"`
}

// jsonExport JSON 导出的顶层结构
type jsonExport struct {
	*domaincapture.Conversation
	TokenCount int    `json:"tokenCount"`
	ExportedAt string `json:"exportedAt"`
}

// Service 导出服务
type Service struct {
	store  *appcapture.Store
	logger *slog.Logger
}

// NewService 创建导出服务
func NewService(store *appcapture.Store) *Service {
	return &Service{
		store:  store,
		logger: log.NewModuleLogger("export", "service"),
	}
}

// Export 导出指定会话
func (s *Service) Export(key domaincapture.ConversationKey, format Format) (*Result, error) {
	conv, ok := s.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, key.String())
	}

	tokenCount := s.countTokens(conv)

	var content string
	switch format {
	case FormatMarkdown, "":
		content = renderMarkdown(conv, tokenCount)
		format = FormatMarkdown
	case FormatJSON:
		data, err := json.MarshalIndent(&jsonExport{
			Conversation: conv,
			TokenCount:   tokenCount,
			ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal conversation: %w", err)
		}
		content = string(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	s.logger.Info("conversation exported",
		"platform", conv.Platform,
		"conversation_id", conv.ID,
		"format", format,
		"messages", len(conv.Messages),
	)

	return &Result{
		Format:       format,
		Content:      content,
		TokenCount:   tokenCount,
		MessageCount: len(conv.Messages),
	}, nil
}

// countTokens 估算会话全文的 Token 数量
// 计数器初始化失败时返回 0，导出不因此失败
func (s *Service) countTokens(conv *domaincapture.Conversation) int {
	counter, err := GetTokenCounter()
	if err != nil {
		s.logger.Warn("token counter unavailable", "error", err)
		return 0
	}

	total := 0
	for _, msg := range conv.Messages {
		total += counter.CountTokens(msg.Text)
	}
	return total
}

// renderMarkdown 渲染 Markdown 文档
func renderMarkdown(conv *domaincapture.Conversation, tokenCount int) string {
	var b strings.Builder

	title := conv.Title
	if title == "" {
		title = "Untitled conversation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "- Platform: %s\n", conv.Platform)
	fmt.Fprintf(&b, "- Conversation ID: %s\n", conv.ID)
	if conv.CreatedAt > 0 {
		fmt.Fprintf(&b, "- Created: %s\n", formatMillis(conv.CreatedAt))
	}
	if conv.UpdatedAt > 0 {
		fmt.Fprintf(&b, "- Updated: %s\n", formatMillis(conv.UpdatedAt))
	}
	fmt.Fprintf(&b, "- Messages: %d\n", len(conv.Messages))
	if tokenCount > 0 {
		fmt.Fprintf(&b, "- Tokens (cl100k_base): %d\n", tokenCount)
	}
	b.WriteString("\n")

	for _, msg := range conv.Messages {
		author := msg.AuthorName
		if author == "" {
			author = domaincapture.AuthorName(conv.Platform, msg.Role)
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", author, msg.Text)
	}

	return b.String()
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
