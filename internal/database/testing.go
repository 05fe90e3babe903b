package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"stock_signal/internal/config"

	"gorm.io/gorm"
)

var memSeq atomic.Int64

// OpenTestDB 打开独立的内存 SQLite 数据库，测试结束时关闭
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Type:         "sqlite",
		Path:         fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memSeq.Add(1)),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
