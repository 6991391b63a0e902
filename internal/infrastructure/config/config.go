// Package config 提供应用配置（默认值 + 环境变量覆盖）
package config

import (
	"os"
	"strconv"
	"time"
)

// 环境变量名
const (
	// EnvHTTPPort HTTP 端口
	EnvHTTPPort = "CHATVAULT_HTTP_PORT"
	// EnvRulesPath DOM 选择器规则文件路径
	EnvRulesPath = "CHATVAULT_RULES_PATH"
	// EnvArchivePath 存档数据库路径
	EnvArchivePath = "CHATVAULT_ARCHIVE_PATH"
	// EnvDiscovery 是否启用 mDNS 广播
	EnvDiscovery = "CHATVAULT_DISCOVERY"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Capture   CaptureConfig
	Scanner   ScannerConfig
	Archive   ArchiveConfig
	Discovery DiscoveryConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，同时用于单例锁
	HTTPPort string
}

// BridgeConfig 拦截器桥接配置
type BridgeConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	// SourceTag 信封来源标记，用于过滤无关流量
	SourceTag string
	// MaxBodyBytes 单条响应体的捕获上限（超出截断）
	MaxBodyBytes int
}

// CaptureConfig 捕获与重扫配置
type CaptureConfig struct {
	// ActivePollInterval 活跃会话 URL 轮询间隔
	ActivePollInterval time.Duration
	// RescanCooldown 同一会话两次重扫之间的冷却窗口
	RescanCooldown time.Duration
	// RescanMaxRetries 重扫 HTTP 调用的最大重试次数
	RescanMaxRetries int
	// RescanTimeout 单次重扫请求超时
	RescanTimeout time.Duration
	// RescanBackoffBase 重试退避的初始间隔
	RescanBackoffBase time.Duration
}

// ScannerConfig DOM 回退扫描配置
type ScannerConfig struct {
	// RulesPath 选择器规则文件路径（空表示仅使用内置规则）
	RulesPath string
}

// ArchiveConfig 会话存档配置
type ArchiveConfig struct {
	// DBPath sqlite 存档路径（空表示使用数据目录默认位置）
	DBPath string
}

// DiscoveryConfig mDNS 服务发现配置
type DiscoveryConfig struct {
	Enabled      bool
	InstanceName string
}

// NewConfig 创建配置（默认值 + 环境变量覆盖）
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: getEnv(EnvHTTPPort, ":19970"),
		},
		Bridge: BridgeConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SourceTag:       "chatvault-interceptor",
			MaxBodyBytes:    2 * 1024 * 1024,
		},
		Capture: CaptureConfig{
			ActivePollInterval: 500 * time.Millisecond,
			RescanCooldown:     15 * time.Second,
			RescanMaxRetries:   3,
			RescanTimeout:      10 * time.Second,
			RescanBackoffBase:  500 * time.Millisecond,
		},
		Scanner: ScannerConfig{
			RulesPath: getEnv(EnvRulesPath, ""),
		},
		Archive: ArchiveConfig{
			DBPath: getEnv(EnvArchivePath, ""),
		},
		Discovery: DiscoveryConfig{
			Enabled:      getEnvBool(EnvDiscovery, true),
			InstanceName: "chatvault",
		},
	}
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewBridgeConfig 创建桥接配置
func NewBridgeConfig(cfg *Config) *BridgeConfig {
	return &cfg.Bridge
}

// NewCaptureConfig 创建捕获配置
func NewCaptureConfig(cfg *Config) *CaptureConfig {
	return &cfg.Capture
}

// NewScannerConfig 创建扫描配置
func NewScannerConfig(cfg *Config) *ScannerConfig {
	return &cfg.Scanner
}

// NewArchiveConfig 创建存档配置
func NewArchiveConfig(cfg *Config) *ArchiveConfig {
	return &cfg.Archive
}

// NewDiscoveryConfig 创建发现配置
func NewDiscoveryConfig(cfg *Config) *DiscoveryConfig {
	return &cfg.Discovery
}

// getEnv 获取环境变量，带默认值
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvBool 获取布尔型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
