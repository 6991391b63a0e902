package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/chatvault/backend/internal/infrastructure/bridge"
	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/log"
	"github.com/chatvault/backend/internal/interfaces/http/handler"
	"github.com/chatvault/backend/internal/interfaces/http/middleware"
	"github.com/chatvault/backend/internal/interfaces/mcp"

	_ "github.com/chatvault/backend/docs" // Swagger docs
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	serverCfg *config.ServerConfig,
	captureHandler *handler.CaptureHandler,
	exportHandler *handler.ExportHandler,
	bridgeServer *bridge.Server,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	// 信封回退通道可能被 Windows 下的 curl 以 GBK 编码调用
	api := router.Group("/api/v1")
	api.Use(middleware.EnsureUTF8Body())
	{
		// 会话查询
		api.GET("/conversations", captureHandler.ListConversations)
		api.GET("/conversations/:platform/:id", captureHandler.GetConversation)
		api.GET("/conversations/:platform/:id/export", exportHandler.Export)
		api.GET("/stats", captureHandler.Stats)

		// 活跃会话
		api.GET("/active/messages", captureHandler.ActiveMessages)
		api.POST("/active/url", captureHandler.SetActiveURL)
		api.POST("/rescan", captureHandler.Rescan)

		// WebSocket 之外的回退投递通道
		api.POST("/capture/envelope", captureHandler.Ingest)
	}

	// 拦截器桥接通道
	router.GET("/ws/capture", func(c *gin.Context) {
		bridgeServer.HandleConnection(c.Writer, c.Request)
	})

	// 健康检查（同时用于单例端口锁探测）
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: serverCfg.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
