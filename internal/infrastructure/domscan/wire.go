package domscan

import (
	"github.com/google/wire"
)

// ProviderSet DOM 扫描 ProviderSet
var ProviderSet = wire.NewSet(
	NewScanner,
	NewRuleWatcher,
)
