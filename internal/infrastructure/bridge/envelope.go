// Package bridge 实现拦截器与守护进程之间的捕获通道
// 页面侧拦截脚本包裹 fetch/XHR 后，将观测以信封形式经 WebSocket 投递到本包；
// 本包保证投递顺序（就绪前排队、就绪后按序冲刷）并过滤无关流量
package bridge

import (
	"encoding/json"
	"strings"
)

// EnvelopeKind 信封类型
type EnvelopeKind string

const (
	// KindNetwork 网络响应观测
	KindNetwork EnvelopeKind = "network"
	// KindNavigation 页面导航信号（SPA 路由变化）
	KindNavigation EnvelopeKind = "navigation"
	// KindAuth 凭证观测（请求头中的 Authorization、页面内嵌状态中的 org id）
	KindAuth EnvelopeKind = "auth"
	// KindDOM 渲染后的 DOM 快照（网络捕获不可用时的回退）
	KindDOM EnvelopeKind = "dom"
	// KindReady 守护进程 → 拦截器的就绪信号
	KindReady EnvelopeKind = "ready"
)

// Envelope 跨执行上下文投递的捕获信封
// Source 为固定来源标记，Seq 在单个连接内单调递增
type Envelope struct {
	Source string       `json:"source"`
	Seq    uint64       `json:"seq"`
	Kind   EnvelopeKind `json:"kind"`

	// 网络观测字段
	URL         string `json:"url,omitempty"`
	Method      string `json:"method,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        string `json:"body,omitempty"`

	// 凭证观测字段
	AuthToken string `json:"authToken,omitempty"`
	OrgID     string `json:"orgId,omitempty"`
	// PageState 页面内嵌 JSON 状态块（best-effort 凭证来源）
	PageState string `json:"pageState,omitempty"`

	// DOM 快照字段
	HTML string `json:"html,omitempty"`

	// CapturedAt 捕获时间（epoch 毫秒）
	CapturedAt int64 `json:"capturedAt,omitempty"`
}

// parseErrorSentinel 响应体无法解析为 JSON 时的哨兵载荷
// 观测不丢弃，下游按形状不符降级处理
type parseErrorSentinel struct {
	ParseError bool   `json:"parseError"`
	Raw        string `json:"raw"`
}

// DecodeBody 按 content-type 解码响应体
// JSON 类型直接透传；其他类型尝试 best-effort JSON 解析；
// 解析失败时返回哨兵错误载荷而非丢弃观测
func DecodeBody(env *Envelope) json.RawMessage {
	body := strings.TrimSpace(env.Body)
	if body == "" {
		return nil
	}

	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}

	sentinel, err := json.Marshal(parseErrorSentinel{ParseError: true, Raw: body})
	if err != nil {
		return nil
	}
	return sentinel
}

// IsParseError 判断载荷是否为解析失败哨兵
func IsParseError(body json.RawMessage) bool {
	var s parseErrorSentinel
	if err := json.Unmarshal(body, &s); err != nil {
		return false
	}
	return s.ParseError
}
