package domscan

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// 规则文件保存常由编辑器触发多个事件，合并为一次重载
const reloadDebounce = 500 * time.Millisecond

// RuleWatcher 规则文件热更新监听器
// 监听规则文件所在目录（编辑器保存常以 rename+create 替换文件，
// 直接监听文件会在替换后失效）
type RuleWatcher struct {
	scanner   *Scanner
	rulesPath string
	watcher   *fsnotify.Watcher
	logger    *slog.Logger

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRuleWatcher 创建规则监听器
// 未配置规则文件路径时返回 nil（仅使用内置规则，无需监听）
func NewRuleWatcher(cfg *config.ScannerConfig, scanner *Scanner) (*RuleWatcher, error) {
	if cfg.RulesPath == "" {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &RuleWatcher{
		scanner:   scanner,
		rulesPath: cfg.RulesPath,
		watcher:   watcher,
		logger:    log.NewModuleLogger("domscan", "rule_watcher"),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start 启动监听
func (w *RuleWatcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.rulesPath)); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Info("watching scan rules",
		"path", w.rulesPath,
	)
	return nil
}

// Stop 停止监听
func (w *RuleWatcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
	w.wg.Wait()

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()
}

// watchLoop 事件监听循环
func (w *RuleWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.rulesPath) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("rule watcher error", "error", err)
		}
	}
}

// scheduleReload 防抖后重载规则
func (w *RuleWatcher) scheduleReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(reloadDebounce, w.reload)
}

// reload 重新加载规则文件
// 加载失败保留现有规则，坏文件不会破坏运行中的扫描
func (w *RuleWatcher) reload() {
	rules, err := LoadRuleSet(w.rulesPath)
	if err != nil {
		w.logger.Warn("rule reload failed, keeping current rules",
			"path", w.rulesPath,
			"error", err,
		)
		return
	}

	w.scanner.ReplaceRules(rules)
	w.logger.Info("scan rules reloaded",
		"path", w.rulesPath,
		"platforms", len(rules.Platforms),
	)
}
