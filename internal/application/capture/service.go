package capture

import (
	"encoding/json"
	"log/slog"
	"time"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/domain/events"
	"github.com/chatvault/backend/internal/infrastructure/bridge"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// SnapshotScanner DOM 快照扫描器（infrastructure/domscan 实现）
type SnapshotScanner interface {
	ScanSnapshot(platform domaincapture.Platform, html string) []domaincapture.Message
}

// Service 捕获管线
// 消费中继投递的信封：网络观测走分类 → 解析 → 合并路径，
// 导航信号驱动活跃会话跟踪，凭证观测填充认证缓存，
// DOM 快照经回退扫描器进入同一合并路径
type Service struct {
	relay     *bridge.Relay
	store     *Store
	authCache *AuthCache
	syncer    *Synchronizer
	scanner   SnapshotScanner
	eventBus  events.EventBus
	logger    *slog.Logger
}

// NewService 创建捕获管线
func NewService(
	relay *bridge.Relay,
	store *Store,
	authCache *AuthCache,
	syncer *Synchronizer,
	scanner SnapshotScanner,
	eventBus events.EventBus,
) *Service {
	return &Service{
		relay:     relay,
		store:     store,
		authCache: authCache,
		syncer:    syncer,
		scanner:   scanner,
		eventBus:  eventBus,
		logger:    log.NewModuleLogger("capture", "service"),
	}
}

// Start 向中继声明就绪，触发积压冲刷
// 必须在存储与认证缓存就绪之后调用
func (s *Service) Start() {
	s.relay.SetReady(s.HandleEnvelope)
	s.logger.Info("capture pipeline ready")
}

// HandleEnvelope 处理单个信封
// 中继保证调用顺序与生产顺序一致
func (s *Service) HandleEnvelope(env *bridge.Envelope) {
	switch env.Kind {
	case bridge.KindNetwork:
		s.handleNetwork(env)
	case bridge.KindNavigation:
		s.handleNavigation(env)
	case bridge.KindAuth:
		s.handleAuth(env)
	case bridge.KindDOM:
		s.handleDOM(env)
	}
}

// handleNetwork 网络响应观测
func (s *Service) handleNetwork(env *bridge.Envelope) {
	// 顺带捕获请求头中的凭证
	if env.AuthToken != "" {
		s.authCache.ObserveAuthHeader(env.AuthToken)
	}

	classification := domaincapture.Classify(env.URL)
	if classification == nil {
		return
	}
	if env.Status != 0 && (env.Status < 200 || env.Status >= 300) {
		s.logger.Debug("skipping non-2xx response",
			"url", env.URL,
			"status", env.Status,
		)
		return
	}

	body := bridge.DecodeBody(env)
	if body == nil {
		return
	}
	if bridge.IsParseError(body) {
		s.logger.Warn("response body is not JSON",
			"platform", classification.Platform,
			"url", env.URL,
		)
		return
	}

	if classification.OrgID != "" {
		s.authCache.ObserveOrgID(classification.OrgID)
	}

	seenAt := capturedAt(env)
	convs := s.parse(classification, body)
	if len(convs) == 0 {
		s.logger.Debug("no conversations in response",
			"platform", classification.Platform,
			"kind", classification.Kind,
			"url", env.URL,
		)
		return
	}

	for _, conv := range convs {
		conv.LastSeenAt = seenAt
	}
	count := s.store.UpsertMany(convs)

	s.logger.Debug("network observation merged",
		"platform", classification.Platform,
		"kind", classification.Kind,
		"conversations", count,
	)
}

// parse 按分类结果选择解析器
func (s *Service) parse(c *domaincapture.Classification, body json.RawMessage) []*domaincapture.Conversation {
	switch {
	case c.Platform == domaincapture.PlatformChatGPT && c.Kind == domaincapture.KindList:
		return domaincapture.ParseChatGPTList(body)
	case c.Platform == domaincapture.PlatformChatGPT && c.Kind == domaincapture.KindDetail:
		if conv := domaincapture.ParseChatGPTDetail(c.ConversationID, body); conv != nil {
			return []*domaincapture.Conversation{conv}
		}
	case c.Platform == domaincapture.PlatformClaude && c.Kind == domaincapture.KindList:
		return domaincapture.ParseClaudeList(c.OrgID, body)
	case c.Platform == domaincapture.PlatformClaude && c.Kind == domaincapture.KindDetail:
		if conv := domaincapture.ParseClaudeDetail(c.ConversationID, c.OrgID, body); conv != nil {
			return []*domaincapture.Conversation{conv}
		}
	}
	return nil
}

// handleNavigation 页面导航信号
func (s *Service) handleNavigation(env *bridge.Envelope) {
	s.syncer.ObserveNavigation(env.URL)
	if s.eventBus != nil {
		s.eventBus.Publish(&events.NavigationEvent{
			URL:       env.URL,
			EventTime: time.Now(),
		})
	}
}

// handleAuth 凭证观测
func (s *Service) handleAuth(env *bridge.Envelope) {
	if env.AuthToken != "" {
		s.authCache.ObserveAuthHeader(env.AuthToken)
	}
	if env.OrgID != "" {
		s.authCache.ObserveOrgID(env.OrgID)
	}
	if env.PageState != "" {
		s.authCache.ObservePageState(json.RawMessage(env.PageState))
	}
}

// handleDOM 渲染后的 DOM 快照（网络捕获不可用时的回退）
func (s *Service) handleDOM(env *bridge.Envelope) {
	if s.scanner == nil {
		return
	}

	key := domaincapture.ClassifyPage(env.URL)
	if key == nil {
		return
	}

	messages := s.scanner.ScanSnapshot(key.Platform, env.HTML)
	if len(messages) == 0 {
		return
	}

	// DOM 快照不可视为完整历史，后续 detail 观测会修正顺序
	s.store.Upsert(&domaincapture.Conversation{
		ID:         key.ID,
		Platform:   key.Platform,
		Messages:   messages,
		LastSeenAt: capturedAt(env),
	})

	s.logger.Debug("dom snapshot merged",
		"platform", key.Platform,
		"conversation_id", key.ID,
		"messages", len(messages),
	)
}

func capturedAt(env *bridge.Envelope) int64 {
	if env.CapturedAt > 0 {
		return env.CapturedAt
	}
	return time.Now().UnixMilli()
}
