package capture

import (
	"log/slog"
	"sort"
	"sync"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/domain/events"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// Store 进程内会话存储
// 内存映射是唯一权威数据源，所有写入都经过合并规则；
// 合并产生新快照，存量条目不被原地修改，因此读取方可安全持有返回的指针
type Store struct {
	mu            sync.RWMutex
	conversations map[domaincapture.ConversationKey]*domaincapture.Conversation
	eventBus      events.EventBus
	logger        *slog.Logger
}

// NewStore 创建会话存储
func NewStore(eventBus events.EventBus) *Store {
	return &Store{
		conversations: make(map[domaincapture.ConversationKey]*domaincapture.Conversation),
		eventBus:      eventBus,
		logger:        log.NewModuleLogger("capture", "store"),
	}
}

// Upsert 合并单个会话观测，返回合并后的快照
func (s *Store) Upsert(conv *domaincapture.Conversation) *domaincapture.Conversation {
	if conv == nil || conv.ID == "" {
		return nil
	}

	key := conv.Key()

	s.mu.Lock()
	existing := s.conversations[key]
	merged := Merge(existing, conv)
	s.conversations[key] = merged
	s.mu.Unlock()

	s.logger.Debug("conversation upserted",
		"platform", merged.Platform,
		"conversation_id", merged.ID,
		"messages", len(merged.Messages),
		"full_history", merged.HasFullHistory,
	)

	if s.eventBus != nil {
		s.eventBus.Publish(events.NewConversationUpdated(merged))
	}

	return merged
}

// UpsertMany 批量合并会话观测（列表端点的典型路径）
func (s *Store) UpsertMany(convs []*domaincapture.Conversation) int {
	count := 0
	for _, conv := range convs {
		if s.Upsert(conv) != nil {
			count++
		}
	}
	return count
}

// Get 按键查找会话
func (s *Store) Get(key domaincapture.ConversationKey) (*domaincapture.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[key]
	return conv, ok
}

// GetAll 返回全部会话，按最后活动时间降序
func (s *Store) GetAll() []*domaincapture.Conversation {
	s.mu.RLock()
	all := make([]*domaincapture.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		all = append(all, conv)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt != all[j].UpdatedAt {
			return all[i].UpdatedAt > all[j].UpdatedAt
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// GetByPlatform 返回指定平台的会话，按最后活动时间降序
func (s *Store) GetByPlatform(platform domaincapture.Platform) []*domaincapture.Conversation {
	all := s.GetAll()
	filtered := make([]*domaincapture.Conversation, 0, len(all))
	for _, conv := range all {
		if conv.Platform == platform {
			filtered = append(filtered, conv)
		}
	}
	return filtered
}

// Count 返回会话总数
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// ComputeStats 实时计算捕获统计
func (s *Store) ComputeStats() *domaincapture.ScannerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domaincapture.ScannerStats{
		TotalConversations: len(s.conversations),
	}
	for _, conv := range s.conversations {
		if len(conv.Messages) > 0 {
			stats.ConversationsWithMessages++
			stats.TotalMessages += len(conv.Messages)
		}
		if conv.LastSeenAt > stats.LastCapturedAt {
			stats.LastCapturedAt = conv.LastSeenAt
		}
	}
	return stats
}
