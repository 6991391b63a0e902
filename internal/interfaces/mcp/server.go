package mcp

import (
	"net/http"

	appcapture "github.com/chatvault/backend/internal/application/capture"
	appexport "github.com/chatvault/backend/internal/application/export"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer MCP 服务器
// 把已捕获的会话暴露给本机的 AI 工具（编辑器助手、代理等）
type MCPServer struct {
	server        *mcp.Server
	handler       http.Handler
	store         *appcapture.Store
	syncer        *appcapture.Synchronizer
	exportService *appexport.Service
}

// NewServer 创建 MCP 服务器
func NewServer(
	store *appcapture.Store,
	syncer *appcapture.Synchronizer,
	exportService *appexport.Service,
) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "chatvault-daemon",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:        server,
		store:         store,
		syncer:        syncer,
		exportService: exportService,
	}

	// 注册工具：list_conversations
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List captured AI chat conversations. Parameters: platform (string, optional) - filter by platform, either 'chatgpt' or 'claude'. Returns: conversation summaries sorted by last activity (id, platform, title, message count, full-history flag).",
	}, mcpServer.listConversationsTool)

	// 注册工具：get_active_messages
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_active_messages",
		Description: "Get the merged message list of the conversation currently open in the browser. No parameters required. Returns: conversation metadata and ordered messages with roles and text.",
	}, mcpServer.getActiveMessagesTool)

	// 注册工具：rescan
	mcp.AddTool(server, &mcp.Tool{
		Name:        "rescan",
		Description: "Actively re-fetch the full history of the currently open conversation using cached browser credentials. No parameters required. Returns: merged conversation summary after the rescan.",
	}, mcpServer.rescanTool)

	// 注册工具：export_conversation
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_conversation",
		Description: "Export a captured conversation. Parameters: platform (string, required) - 'chatgpt' or 'claude'; conversation_id (string, required); format (string, optional) - 'markdown' or 'json', defaults to markdown. Returns: rendered content with token count.",
	}, mcpServer.exportConversationTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}
