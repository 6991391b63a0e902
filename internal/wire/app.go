package wire

import (
	"database/sql"

	"log/slog"

	appcapture "github.com/chatvault/backend/internal/application/capture"
	"github.com/chatvault/backend/internal/domain/events"
	"github.com/chatvault/backend/internal/infrastructure/bridge"
	"github.com/chatvault/backend/internal/infrastructure/discovery"
	"github.com/chatvault/backend/internal/infrastructure/domscan"
	applog "github.com/chatvault/backend/internal/infrastructure/log"
	"github.com/chatvault/backend/internal/infrastructure/storage"
	"github.com/chatvault/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer     *interfaces.HTTPServer
	MCPServer      *interfaces.MCPServer
	bridgeServer   *bridge.Server
	captureService *appcapture.Service
	store          *appcapture.Store
	syncer         *appcapture.Synchronizer
	archiver       *storage.Archiver
	ruleWatcher    *domscan.RuleWatcher // 可能为 nil（未配置外部规则文件）
	advertiser     *discovery.Advertiser
	eventBus       events.EventBus
	db             *sql.DB
	logger         *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	bridgeServer *bridge.Server,
	captureService *appcapture.Service,
	store *appcapture.Store,
	syncer *appcapture.Synchronizer,
	archiver *storage.Archiver,
	ruleWatcher *domscan.RuleWatcher,
	advertiser *discovery.Advertiser,
	eventBus events.EventBus,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:     httpServer,
		MCPServer:      mcpServer,
		bridgeServer:   bridgeServer,
		captureService: captureService,
		store:          store,
		syncer:         syncer,
		archiver:       archiver,
		ruleWatcher:    ruleWatcher,
		advertiser:     advertiser,
		eventBus:       eventBus,
		db:             db,
		logger:         applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting ChatVault daemon")

	// 先回灌历史快照，再放行信封消费
	// 顺序保证：拦截器重连后排队的信封会归并到回灌后的会话上，而不是相反
	if a.archiver != nil {
		restored := a.archiver.Rehydrate()
		if len(restored) > 0 {
			count := a.store.UpsertMany(restored)
			a.logger.Info("Archive rehydrated",
				"conversations", count,
			)
		}
		a.archiver.Start()
	}

	// 打开中继闸门，开始消费捕获信封
	a.captureService.Start()

	// 活跃会话轮询
	a.syncer.Start()

	// 扫描规则热加载（未配置外部规则文件时为 nil）
	if a.ruleWatcher != nil {
		if err := a.ruleWatcher.Start(); err != nil {
			a.logger.Error("Failed to start rule watcher",
				"error", err,
			)
		} else {
			a.logger.Info("Rule watcher started")
		}
	}

	// mDNS 服务广播（失败不影响主流程）
	if a.advertiser != nil {
		if err := a.advertiser.Start(); err != nil {
			a.logger.Error("Failed to start mDNS advertiser",
				"error", err,
			)
		}
	}

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("ChatVault daemon started successfully")

	// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
	// 已在 HTTP 服务器中注册 /mcp/sse 端点

	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping ChatVault daemon")

	// 停止活跃会话轮询
	a.syncer.Stop()

	// 停止规则热加载
	if a.ruleWatcher != nil {
		a.ruleWatcher.Stop()
	}

	// 停止 mDNS 广播
	if a.advertiser != nil {
		a.advertiser.Stop()
	}

	// 断开拦截器连接，不再接收新信封
	if a.bridgeServer != nil {
		a.bridgeServer.Close()
	}

	// 关闭事件总线，等待在途事件（含存档写入）处理完成
	if a.eventBus != nil {
		a.eventBus.Close()
		a.logger.Info("Event bus closed")
	}

	// 停止存档订阅
	if a.archiver != nil {
		a.archiver.Stop()
	}

	// 停止 HTTP 服务器
	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
	}

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database",
				"error", err,
			)
		}
	}

	a.logger.Info("ChatVault daemon stopped")
	return nil
}
