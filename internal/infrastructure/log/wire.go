package log

import "github.com/google/wire"

// ProviderSet 日志模块 ProviderSet
// 日志系统在 main 中显式 Init，这里仅暴露配置提供者
var ProviderSet = wire.NewSet(
	NewConfigFromEnv,
)
