package cache

import (
	"context"
	"stock_signal/internal/models"
	"time"
)

// Entry 缓存条目
type Entry struct {
	StockCode  string
	Facts      models.FundamentalFacts
	DataSource string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Store 基本面缓存存储。
// Get 只返回 now 之前未过期的条目，未命中时返回 nil；过期条目只由 DeleteExpired 清理。
type Store interface {
	Get(ctx context.Context, stockCode string, now time.Time) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
