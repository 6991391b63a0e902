package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// 平台 API 基址（测试时可覆盖）
const (
	chatgptBaseURL = "https://chatgpt.com"
	claudeBaseURL  = "https://claude.ai"
)

var (
	// ErrNoActiveConversation 当前没有打开的会话
	ErrNoActiveConversation = errors.New("no active conversation")
	// ErrAuthUnavailable 缺少重扫所需的认证上下文
	ErrAuthUnavailable = errors.New("auth context unavailable")
	// errNotFound 端点候选返回 404，终止该候选的重试
	errNotFound = errors.New("conversation not found")
)

// Synchronizer 活跃会话同步器
// 跟踪页面导航得到的当前会话，轮询检查其捕获完整性；
// 消息缺失且冷却窗口已过时，使用缓存凭据主动补扫 detail 端点
type Synchronizer struct {
	store     *Store
	authCache *AuthCache
	cfg       *config.CaptureConfig
	client    *http.Client
	logger    *slog.Logger

	mu          sync.Mutex
	activeKey   *domaincapture.ConversationKey
	lastAttempt map[domaincapture.ConversationKey]time.Time
	inFlight    map[domaincapture.ConversationKey]bool

	// 基址按平台覆盖（测试注入 httptest 服务器）
	baseURLs map[domaincapture.Platform]string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSynchronizer 创建活跃会话同步器
func NewSynchronizer(store *Store, authCache *AuthCache, cfg *config.CaptureConfig) *Synchronizer {
	return &Synchronizer{
		store:       store,
		authCache:   authCache,
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.RescanTimeout},
		logger:      log.NewModuleLogger("capture", "synchronizer"),
		lastAttempt: make(map[domaincapture.ConversationKey]time.Time),
		inFlight:    make(map[domaincapture.ConversationKey]bool),
		baseURLs: map[domaincapture.Platform]string{
			domaincapture.PlatformChatGPT: chatgptBaseURL,
			domaincapture.PlatformClaude:  claudeBaseURL,
		},
	}
}

// Start 启动轮询
func (s *Synchronizer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.pollLoop(ctx)
	s.logger.Info("synchronizer started",
		"poll_interval", s.cfg.ActivePollInterval,
	)
}

// Stop 停止轮询并等待退出
// 已在途的补扫结果仍会进入存储，合并规则保证其安全
func (s *Synchronizer) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("synchronizer stopped")
}

// ObserveNavigation 处理页面导航信号
func (s *Synchronizer) ObserveNavigation(rawURL string) {
	key := domaincapture.ClassifyPage(rawURL)

	s.mu.Lock()
	changed := !keyEqual(s.activeKey, key)
	s.activeKey = key
	s.mu.Unlock()

	if changed && key != nil {
		s.logger.Info("active conversation changed",
			"platform", key.Platform,
			"conversation_id", key.ID,
		)
	}
}

// ActiveKey 返回当前活跃会话键（可能为 nil）
func (s *Synchronizer) ActiveKey() *domaincapture.ConversationKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKey
}

// ActiveConversation 返回当前活跃会话的合并结果
func (s *Synchronizer) ActiveConversation() (*domaincapture.Conversation, error) {
	key := s.ActiveKey()
	if key == nil {
		return nil, ErrNoActiveConversation
	}
	conv, ok := s.store.Get(*key)
	if !ok {
		return nil, ErrNoActiveConversation
	}
	return conv, nil
}

// pollLoop 周期性检查活跃会话的捕获完整性
func (s *Synchronizer) pollLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.ActivePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkActive(ctx)
		}
	}
}

// checkActive 活跃会话消息缺失且冷却已过时触发补扫
func (s *Synchronizer) checkActive(ctx context.Context) {
	key := s.ActiveKey()
	if key == nil {
		return
	}

	conv, ok := s.store.Get(*key)
	if ok && conv.HasFullHistory && len(conv.Messages) > 0 {
		return
	}

	s.mu.Lock()
	if s.inFlight[*key] || time.Since(s.lastAttempt[*key]) < s.cfg.RescanCooldown {
		s.mu.Unlock()
		return
	}
	s.lastAttempt[*key] = time.Now()
	s.inFlight[*key] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, *key)
			s.mu.Unlock()
		}()
		if err := s.Rescan(ctx, *key); err != nil {
			s.logger.Debug("rescan failed",
				"platform", key.Platform,
				"conversation_id", key.ID,
				"error", err,
			)
		}
	}()
}

// Rescan 主动拉取会话的完整历史
// 依次尝试端点候选；单个候选失败按指数退避重试，404 视为终态直接换下一个候选。
// 成功结果走常规解析与合并路径
func (s *Synchronizer) Rescan(ctx context.Context, key domaincapture.ConversationKey) error {
	token := s.authCache.Token()
	orgID := s.authCache.OrgID()

	if token == "" {
		return ErrAuthUnavailable
	}
	if key.Platform == domaincapture.PlatformClaude && orgID == "" {
		return ErrAuthUnavailable
	}

	candidates := s.endpointCandidates(key, orgID)
	var lastErr error
	for _, endpoint := range candidates {
		body, err := s.fetchWithRetry(ctx, endpoint, token)
		if err != nil {
			lastErr = err
			if errors.Is(err, errNotFound) {
				continue
			}
			continue
		}

		conv := s.parseDetail(key, orgID, body)
		if conv == nil {
			lastErr = fmt.Errorf("unparseable detail payload from %s", endpoint)
			continue
		}

		conv.LastSeenAt = time.Now().UnixMilli()
		s.store.Upsert(conv)
		s.logger.Info("rescan completed",
			"platform", key.Platform,
			"conversation_id", key.ID,
		)
		return nil
	}

	if lastErr == nil {
		lastErr = errNotFound
	}
	return fmt.Errorf("rescan %s: %w", key.String(), lastErr)
}

// endpointCandidates 返回平台的 detail 端点候选，按优先级排列
func (s *Synchronizer) endpointCandidates(key domaincapture.ConversationKey, orgID string) []string {
	base := s.baseURLs[key.Platform]
	switch key.Platform {
	case domaincapture.PlatformChatGPT:
		return []string{
			fmt.Sprintf("%s/backend-api/conversation/%s", base, key.ID),
		}
	case domaincapture.PlatformClaude:
		// 路径形状随平台版本变动，依次尝试
		return []string{
			fmt.Sprintf("%s/api/organizations/%s/chat_conversations/%s?tree=True&rendering_mode=messages", base, orgID, key.ID),
			fmt.Sprintf("%s/api/organizations/%s/chat_conversations/%s", base, orgID, key.ID),
			fmt.Sprintf("%s/api/organizations/%s/conversations/%s", base, orgID, key.ID),
		}
	}
	return nil
}

// fetchWithRetry 带指数退避的单端点拉取
func (s *Synchronizer) fetchWithRetry(ctx context.Context, endpoint, token string) ([]byte, error) {
	var payload []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			payload, err = io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			// 404 说明该端点形状不对或会话不存在，重试无意义
			return backoff.Permanent(errNotFound)
		default:
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(s.cfg.RescanBackoffBase),
			),
			uint64(s.cfg.RescanMaxRetries),
		),
		ctx,
	)

	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return payload, nil
}

// parseDetail 将补扫结果送入常规解析路径
func (s *Synchronizer) parseDetail(key domaincapture.ConversationKey, orgID string, body []byte) *domaincapture.Conversation {
	switch key.Platform {
	case domaincapture.PlatformChatGPT:
		return domaincapture.ParseChatGPTDetail(key.ID, body)
	case domaincapture.PlatformClaude:
		return domaincapture.ParseClaudeDetail(key.ID, orgID, body)
	}
	return nil
}

func keyEqual(a, b *domaincapture.ConversationKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
