//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/chatvault/backend/internal/application"
	appcapture "github.com/chatvault/backend/internal/application/capture"
	"github.com/chatvault/backend/internal/infrastructure"
	"github.com/chatvault/backend/internal/infrastructure/domscan"
	"github.com/chatvault/backend/internal/infrastructure/storage"
	"github.com/chatvault/backend/internal/interfaces"
	"github.com/google/wire"
)

// InitializeAll 初始化所有服务（HTTP + MCP）
func InitializeAll() (*App, error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		// 接口绑定：DOM 快照扫描走 domscan 实现
		wire.Bind(
			new(appcapture.SnapshotScanner),
			new(*domscan.Scanner),
		),
		// 接口绑定：存档写入器从会话仓库取全量快照
		wire.Bind(
			new(storage.ConversationSource),
			new(*appcapture.Store),
		),
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil
}
