package infrastructure

import (
	"github.com/chatvault/backend/internal/infrastructure/bridge"
	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/discovery"
	"github.com/chatvault/backend/internal/infrastructure/domscan"
	"github.com/chatvault/backend/internal/infrastructure/eventbus"
	"github.com/chatvault/backend/internal/infrastructure/storage"
	"github.com/google/wire"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	eventbus.ProviderSet,
	bridge.ProviderSet,
	domscan.ProviderSet,
	storage.ProviderSet,
	discovery.ProviderSet,
	// 可以继续添加其他基础设施模块
)
