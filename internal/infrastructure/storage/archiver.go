package storage

import (
	"log/slog"

	"github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/domain/events"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// ConversationSource 存档回查会话全量数据的来源（由内存存储实现）
type ConversationSource interface {
	Get(key capture.ConversationKey) (*capture.Conversation, bool)
}

// Archiver 存档写入器
// 订阅会话更新事件，把每次归并结果落盘；事件只携带会话键，
// 全量数据从内存存储回查，保证写入的始终是最新归并快照
type Archiver struct {
	archive     ConversationArchive
	source      ConversationSource
	eventBus    events.EventBus
	unsubscribe func()
	logger      *slog.Logger
}

// NewArchiver 创建存档写入器
func NewArchiver(archive ConversationArchive, source ConversationSource, eventBus events.EventBus) *Archiver {
	return &Archiver{
		archive:  archive,
		source:   source,
		eventBus: eventBus,
		logger:   log.NewModuleLogger("storage", "archiver"),
	}
}

// Start 订阅会话更新事件
func (a *Archiver) Start() {
	a.unsubscribe = a.eventBus.Subscribe(events.ConversationUpdated,
		events.HandlerFunc(a.handleConversationUpdated))
	a.logger.Info("archiver started")
}

// Stop 取消订阅
func (a *Archiver) Stop() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.logger.Info("archiver stopped")
}

// handleConversationUpdated 落盘最新归并快照
func (a *Archiver) handleConversationUpdated(event events.Event) error {
	e, ok := event.(*events.ConversationEvent)
	if !ok {
		return nil
	}

	conv, ok := a.source.Get(e.Key)
	if !ok {
		return nil
	}

	if err := a.archive.SaveSnapshot(conv); err != nil {
		a.logger.Error("failed to archive conversation",
			"platform", conv.Platform,
			"conversation_id", conv.ID,
			"error", err,
		)
		return err
	}
	return nil
}

// Rehydrate 启动时从存档恢复会话
// 返回的快照作为非完整历史候选送入存储（平台端可能已有更新的内容）
func (a *Archiver) Rehydrate() []*capture.Conversation {
	convs, err := a.archive.LoadAll()
	if err != nil {
		a.logger.Error("failed to load archived conversations", "error", err)
		return nil
	}

	for _, conv := range convs {
		conv.HasFullHistory = false
	}

	if len(convs) > 0 {
		a.logger.Info("archived conversations rehydrated",
			"count", len(convs),
		)
	}
	return convs
}
