package export

import "github.com/google/wire"

// ProviderSet 导出应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
