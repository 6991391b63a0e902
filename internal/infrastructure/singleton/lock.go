// Package singleton 基于端口占用实现单实例锁
package singleton

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// HealthCheckTimeout 健康检查超时时间
const HealthCheckTimeout = 2 * time.Second

// CheckAndLock 尝试占用端口以获得单实例锁
// 端口可用时返回 listener（调用方关闭后交由 HTTP 服务器监听）；
// 已有健康实例运行时返回 (nil, nil)，调用方应直接退出；
// 端口被占用但实例不健康时返回错误
func CheckAndLock(port string) (net.Listener, error) {
	listener, err := net.Listen("tcp", port)
	if err == nil {
		return listener, nil
	}

	if errors.Is(err, syscall.EADDRINUSE) {
		if isInstanceRunning(port) {
			return nil, nil
		}
		return nil, fmt.Errorf("port %s is occupied but the existing instance failed health check", port)
	}

	return nil, fmt.Errorf("failed to listen on %s: %w", port, err)
}

// isInstanceRunning 通过健康检查端点确认已有实例是否存活
func isInstanceRunning(port string) bool {
	client := &http.Client{Timeout: HealthCheckTimeout}

	resp, err := client.Get(fmt.Sprintf("http://localhost%s/health", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
