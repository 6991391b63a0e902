package capture

import (
	"github.com/google/wire"
)

// ProviderSet 捕获应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewStore,
	NewAuthCache,
	NewSynchronizer,
	NewService,
)
