package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"stock_signal/internal/models"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于数据库表 fundamental_cache 的缓存存储
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建数据库缓存存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get 读取未过期的缓存
func (s *GormStore) Get(ctx context.Context, stockCode string, now time.Time) (*Entry, error) {
	var row models.FundamentalCache
	err := s.db.WithContext(ctx).
		Where("stock_code = ? AND expires_at > ?", stockCode, now).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询缓存失败: %w", err)
	}

	var facts models.FundamentalFacts
	if err := json.Unmarshal(row.Data, &facts); err != nil {
		return nil, fmt.Errorf("解析缓存数据失败: %w", err)
	}
	return &Entry{
		StockCode:  row.StockCode,
		Facts:      facts,
		DataSource: row.DataSource,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
	}, nil
}

// Put 按股票代码覆盖写入
func (s *GormStore) Put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry.Facts)
	if err != nil {
		return fmt.Errorf("序列化缓存数据失败: %w", err)
	}

	row := models.FundamentalCache{
		StockCode:  entry.StockCode,
		Data:       datatypes.JSON(data),
		DataSource: entry.DataSource,
		ExpiresAt:  entry.ExpiresAt,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "data_source", "updated_at", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// DeleteExpired 删除已过期的缓存
func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.FundamentalCache{})
	if res.Error != nil {
		return 0, fmt.Errorf("清理过期缓存失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}
