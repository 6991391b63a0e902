package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,              // 提供数据库连接
	NewConversationArchive, // 会话快照存档
	NewArchiver,            // 存档写入器
)
