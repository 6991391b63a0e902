// Package discovery 实现守护进程的 mDNS 服务广播
// 浏览器扩展（或其配套安装器）通过 _chatvault._tcp 发现本机守护进程，
// 无需在扩展侧硬编码端口
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

const serviceType = "_chatvault._tcp"

// Version 守护进程版本，构建时注入
var Version = "dev"

// Advertiser mDNS 服务广播器
type Advertiser struct {
	mu      sync.RWMutex
	server  *zeroconf.Server
	cfg     *config.DiscoveryConfig
	port    int
	running bool
	logger  *slog.Logger
}

// NewAdvertiser 创建广播器
func NewAdvertiser(cfg *config.DiscoveryConfig, serverCfg *config.ServerConfig) *Advertiser {
	return &Advertiser{
		cfg:    cfg,
		port:   parsePort(serverCfg.HTTPPort),
		logger: log.NewModuleLogger("discovery", "advertiser"),
	}
}

// Start 开始广播
// 未启用或端口无法解析时直接跳过，发现功能失效不影响捕获
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.Enabled {
		a.logger.Info("mdns discovery disabled")
		return nil
	}
	if a.running {
		return fmt.Errorf("advertiser is already running")
	}
	if a.port == 0 {
		a.logger.Warn("cannot determine http port, skipping mdns advertisement")
		return nil
	}

	txtRecords := []string{
		"version=" + Version,
		"port=" + strconv.Itoa(a.port),
	}

	server, err := zeroconf.Register(
		a.cfg.InstanceName,
		serviceType,
		"local.",
		a.port,
		txtRecords,
		nil, // 所有可用接口
	)
	if err != nil {
		return fmt.Errorf("failed to register mdns service: %w", err)
	}

	a.server = server
	a.running = true

	a.logger.Info("mdns advertiser started",
		"instance", a.cfg.InstanceName,
		"service", serviceType,
		"port", a.port,
	)
	return nil
}

// Stop 停止广播
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	a.running = false

	a.logger.Info("mdns advertiser stopped")
}

// IsRunning 是否正在广播
func (a *Advertiser) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// parsePort 从监听地址中解析端口号
func parsePort(addr string) int {
	if strings.HasPrefix(addr, ":") {
		p, err := strconv.Atoi(addr[1:])
		if err != nil {
			return 0
		}
		return p
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return p
}
