package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/chatvault/backend/internal/domain/capture"
)

// ConversationArchive 会话快照存档接口
type ConversationArchive interface {
	SaveSnapshot(conv *capture.Conversation) error
	LoadAll() ([]*capture.Conversation, error)
	Delete(key capture.ConversationKey) error
	Count() (int, error)
}

// conversationArchive sqlite 存档实现
type conversationArchive struct {
	db *sql.DB
}

// NewConversationArchive 创建会话存档实例
func NewConversationArchive(db *sql.DB) (ConversationArchive, error) {
	if err := initArchiveTable(db); err != nil {
		return nil, err
	}
	return &conversationArchive{db: db}, nil
}

// initArchiveTable 初始化存档表
func initArchiveTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS conversation_snapshots (
		platform TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		title TEXT,
		org_id TEXT,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL DEFAULT 0,
		messages TEXT NOT NULL,
		PRIMARY KEY (platform, conversation_id)
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create conversation_snapshots table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_snapshots_updated_at ON conversation_snapshots(updated_at);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create conversation_snapshots index: %w", err)
	}

	return nil
}

// SaveSnapshot 保存会话快照（同键覆盖）
func (r *conversationArchive) SaveSnapshot(conv *capture.Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO conversation_snapshots
			(platform, conversation_id, title, org_id, created_at, updated_at, last_seen_at, messages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, conversation_id) DO UPDATE SET
			title = excluded.title,
			org_id = excluded.org_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			last_seen_at = excluded.last_seen_at,
			messages = excluded.messages`,
		string(conv.Platform), conv.ID, conv.Title, conv.OrgID,
		conv.CreatedAt, conv.UpdatedAt, conv.LastSeenAt, string(messages),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadAll 加载全部快照
// 重启后平台端可能已有新消息，快照一律不带完整历史标记，
// 由后续的 detail 观测重新确立
func (r *conversationArchive) LoadAll() ([]*capture.Conversation, error) {
	rows, err := r.db.Query(`
		SELECT platform, conversation_id, title, org_id, created_at, updated_at, last_seen_at, messages
		FROM conversation_snapshots
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var convs []*capture.Conversation
	for rows.Next() {
		var (
			conv        capture.Conversation
			platform    string
			messagesRaw string
		)
		if err := rows.Scan(&platform, &conv.ID, &conv.Title, &conv.OrgID,
			&conv.CreatedAt, &conv.UpdatedAt, &conv.LastSeenAt, &messagesRaw); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		conv.Platform = capture.Platform(platform)

		if err := json.Unmarshal([]byte(messagesRaw), &conv.Messages); err != nil {
			// 单条损坏的快照不阻断整体恢复
			continue
		}
		convs = append(convs, &conv)
	}
	return convs, rows.Err()
}

// Delete 删除指定会话的快照
func (r *conversationArchive) Delete(key capture.ConversationKey) error {
	_, err := r.db.Exec(`
		DELETE FROM conversation_snapshots WHERE platform = ? AND conversation_id = ?`,
		string(key.Platform), key.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Count 返回存档中的快照数量
func (r *conversationArchive) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM conversation_snapshots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}
