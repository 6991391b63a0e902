package application

import (
	"github.com/chatvault/backend/internal/application/capture"
	"github.com/chatvault/backend/internal/application/export"
	"github.com/google/wire"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	capture.ProviderSet,
	export.ProviderSet,
	// 可以继续添加其他应用服务模块
)
