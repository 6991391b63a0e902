package bridge

import (
	"github.com/google/wire"

	"github.com/chatvault/backend/internal/infrastructure/config"
)

// NewRelayFromConfig 以配置的来源标记安装进程级中继
func NewRelayFromConfig(cfg *config.BridgeConfig) *Relay {
	return Install(cfg.SourceTag)
}

// ProviderSet 桥接 ProviderSet
var ProviderSet = wire.NewSet(
	NewRelayFromConfig,
	NewServer,
)
