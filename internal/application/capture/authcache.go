package capture

import (
	"encoding/json"
	"strings"
	"sync"

	"log/slog"

	"github.com/chatvault/backend/internal/infrastructure/log"
)

// TokenSource 外部令牌来源钩子（测试或嵌入方注入）
type TokenSource func() (token string, orgID string)

// AuthCache 进程级认证上下文缓存
// 令牌与组织 ID 从拦截到的请求头和页面内嵌 JSON 中惰性提取，
// 仅用于补扫时复用浏览器已有的会话凭据，不做任何持久化
type AuthCache struct {
	mu     sync.RWMutex
	token  string
	orgID  string
	source TokenSource
	logger *slog.Logger
}

// NewAuthCache 创建认证缓存
func NewAuthCache() *AuthCache {
	return &AuthCache{
		logger: log.NewModuleLogger("capture", "authcache"),
	}
}

// SetTokenSource 注入外部令牌来源，优先于缓存值
func (a *AuthCache) SetTokenSource(source TokenSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = source
}

// ObserveAuthHeader 记录拦截到的 Authorization 头
func (a *AuthCache) ObserveAuthHeader(header string) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer"))
	if token == "" {
		return
	}

	a.mu.Lock()
	changed := a.token != token
	a.token = token
	a.mu.Unlock()

	if changed {
		a.logger.Debug("auth token refreshed")
	}
}

// ObserveOrgID 记录观测到的组织 ID
func (a *AuthCache) ObserveOrgID(orgID string) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return
	}

	a.mu.Lock()
	a.orgID = orgID
	a.mu.Unlock()
}

// ObservePageState 尽力从页面内嵌 JSON 中提取组织 ID
// 页面结构随平台版本变动，提取失败静默忽略
func (a *AuthCache) ObservePageState(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return
	}

	if orgID := findOrgID(state, 0); orgID != "" {
		a.ObserveOrgID(orgID)
	}
}

// findOrgID 在嵌套结构中查找组织标识字段，限制递归深度
func findOrgID(node any, depth int) string {
	if depth > 6 {
		return ""
	}

	switch v := node.(type) {
	case map[string]any:
		for _, key := range []string{"organization_uuid", "organizationUuid", "org_uuid"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		// 裸 uuid 字段仅在 organization 容器内可信
		if org, ok := v["organization"].(map[string]any); ok {
			if s, ok := org["uuid"].(string); ok && s != "" {
				return s
			}
		}
		for _, child := range v {
			if found := findOrgID(child, depth+1); found != "" {
				return found
			}
		}
	case []any:
		for _, child := range v {
			if found := findOrgID(child, depth+1); found != "" {
				return found
			}
		}
	}
	return ""
}

// Token 返回当前令牌（外部来源优先）
func (a *AuthCache) Token() string {
	a.mu.RLock()
	source := a.source
	token := a.token
	a.mu.RUnlock()

	if source != nil {
		if t, _ := source(); t != "" {
			return t
		}
	}
	return token
}

// OrgID 返回当前组织 ID（外部来源优先）
func (a *AuthCache) OrgID() string {
	a.mu.RLock()
	source := a.source
	orgID := a.orgID
	a.mu.RUnlock()

	if source != nil {
		if _, o := source(); o != "" {
			return o
		}
	}
	return orgID
}
