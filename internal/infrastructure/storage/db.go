// Package storage 提供会话快照的 sqlite 存档
// 内存存储是唯一权威数据源；存档只为守护进程重启后保住已捕获的内容
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/chatvault/backend/internal/infrastructure/config"
)

// GetDBPath 获取存档数据库路径
// Windows: %USERPROFILE%\.chatvault\chatvault.db
// macOS/Linux: ~/.chatvault/chatvault.db
func GetDBPath() (string, error) {
	dataDir := config.GetDataDir()
	return filepath.Join(dataDir, "chatvault.db"), nil
}

// ProvideDB 打开存档数据库连接
// 配置了显式路径时优先使用，否则落在数据目录默认位置
func ProvideDB(cfg *config.ArchiveConfig) (*sql.DB, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		p, err := GetDBPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
