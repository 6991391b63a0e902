package capture

import (
	"net/url"
	"regexp"
	"strings"
)

// EndpointKind 端点类型
type EndpointKind string

const (
	// KindList 会话列表端点（仅元数据，无消息体）
	KindList EndpointKind = "list"
	// KindDetail 会话详情端点（含完整消息历史）
	KindDetail EndpointKind = "detail"
)

// Classification URL 分类结果
type Classification struct {
	Platform Platform
	Kind     EndpointKind
	// ConversationID detail 端点的会话 ID（list 端点为空）
	ConversationID string
	// OrgID Claude 端点路径中的组织 ID
	OrgID string
}

const (
	chatgptListPath     = "/backend-api/conversations"
	chatgptDetailPrefix = "/backend-api/conversation/"
)

// Claude 端点：/api/organizations/{orgId}/{chat_conversations|conversations}[/{id}]
var claudePathPattern = regexp.MustCompile(`^/api/organizations/([^/]+)/(chat_conversations|conversations)(?:/([^/]+))?/?$`)

// Classify 判断 URL 是否为可捕获的平台端点
// 纯函数，无副作用；不匹配时返回 nil
func Classify(rawURL string) *Classification {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	platform := platformFromHost(u.Hostname())
	path := u.Path

	// 主机名无法判别时（如同源相对请求），按路径形状推断
	if platform == "" {
		platform = platformFromPath(path)
		if platform == "" {
			return nil
		}
	}

	switch platform {
	case PlatformChatGPT:
		return classifyChatGPT(path)
	case PlatformClaude:
		return classifyClaude(path)
	}
	return nil
}

// platformFromHost 按主机名推断平台
func platformFromHost(host string) Platform {
	host = strings.ToLower(host)
	switch {
	case strings.Contains(host, "claude.ai"):
		return PlatformClaude
	case strings.Contains(host, "chatgpt"), strings.Contains(host, "openai"):
		return PlatformChatGPT
	}
	return ""
}

// platformFromPath 按路径形状推断平台（主机名缺失或无法判别时的回退）
func platformFromPath(path string) Platform {
	switch {
	case strings.HasPrefix(path, "/backend-api/"):
		return PlatformChatGPT
	case strings.HasPrefix(path, "/api/organizations/"):
		return PlatformClaude
	}
	return ""
}

func classifyChatGPT(path string) *Classification {
	if path == chatgptListPath {
		return &Classification{Platform: PlatformChatGPT, Kind: KindList}
	}
	if rest, ok := strings.CutPrefix(path, chatgptDetailPrefix); ok {
		// 仅匹配单段会话 ID，子资源路径（如 /gen_title）不属于 detail 响应
		id := strings.TrimSuffix(rest, "/")
		if id != "" && !strings.Contains(id, "/") {
			return &Classification{Platform: PlatformChatGPT, Kind: KindDetail, ConversationID: id}
		}
	}
	return nil
}

// ClassifyPage 从页面导航 URL 推断当前打开的会话
// Claude 页面路径为 /chat/{id}，ChatGPT 为 /c/{id}；其余路径返回 nil
func ClassifyPage(rawURL string) *ConversationKey {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	platform := platformFromHost(u.Hostname())
	if platform == "" {
		return nil
	}

	var prefix string
	switch platform {
	case PlatformClaude:
		prefix = "/chat/"
	case PlatformChatGPT:
		prefix = "/c/"
	}

	rest, ok := strings.CutPrefix(u.Path, prefix)
	if !ok {
		return nil
	}
	id := strings.TrimSuffix(rest, "/")
	if id == "" || strings.Contains(id, "/") {
		return nil
	}
	return &ConversationKey{Platform: platform, ID: id}
}

func classifyClaude(path string) *Classification {
	m := claudePathPattern.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	c := &Classification{Platform: PlatformClaude, OrgID: m[1]}
	if m[3] == "" {
		c.Kind = KindList
	} else {
		c.Kind = KindDetail
		c.ConversationID = m[3]
	}
	return c
}
