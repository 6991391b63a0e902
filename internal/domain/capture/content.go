package capture

import (
	"strconv"
	"strings"
	"time"
)

// 本文件提供解析器共用的宽松 JSON 取值和文本提取工具。
// 平台响应的字段名和形状随版本漂移，所有访问都必须容忍缺失和类型不符，
// 解析失败只降级为空值，从不抛错。

// asMap 将任意 JSON 值断言为对象
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asSlice 将任意 JSON 值断言为数组
func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// firstString 依次尝试多个键，返回第一个非空字符串值
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstTimestamp 依次尝试多个键，返回第一个可解析的时间戳（epoch 毫秒）
func firstTimestamp(m map[string]any, keys ...string) int64 {
	for _, key := range keys {
		if ts := parseTimestamp(m[key]); ts > 0 {
			return ts
		}
	}
	return 0
}

// parseTimestamp 解析数值或字符串形式的时间戳为 epoch 毫秒
// 数值按 NormalizeTimestamp 的秒/毫秒启发式处理，字符串尝试 RFC3339 和数字
func parseTimestamp(v any) int64 {
	switch t := v.(type) {
	case float64:
		return NormalizeTimestamp(t)
	case string:
		if t == "" {
			return 0
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UnixMilli()
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UnixMilli()
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return NormalizeTimestamp(f)
		}
	}
	return 0
}

// extractText 从多种内容表示中提取可读文本
// 支持：纯字符串、{parts:[...]}、{text:...}、混合形状的块数组
// 多段文本以换行符连接；完全无法提取时返回空串（调用方丢弃该消息）
func extractText(content any) string {
	switch c := content.(type) {
	case string:
		return NormalizeText(c)
	case []any:
		var parts []string
		for _, item := range c {
			if text := extractText(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		// {parts:[...]} 形状（ChatGPT content 对象）
		if parts, ok := c["parts"]; ok {
			if text := extractText(parts); text != "" {
				return text
			}
		}
		// {type:"text", text:"..."} 及同类块
		if s, ok := c["text"].(string); ok && s != "" {
			return NormalizeText(s)
		}
		// 部分块用 content 字段嵌套
		if inner, ok := c["content"]; ok {
			if text := extractText(inner); text != "" {
				return text
			}
		}
	}
	return ""
}
