package service

import (
	"context"
	"fmt"
	"stock_signal/internal/errs"
	"stock_signal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchlistRepository 自选股存储
type WatchlistRepository struct {
	db *gorm.DB
}

// NewWatchlistRepository 创建自选股存储
func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Save 按股票代码覆盖写入
func (r *WatchlistRepository) Save(ctx context.Context, entry *models.WatchlistEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock_name", "added_time", "highlight", "strategies", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("保存自选股失败: %w", err)
	}
	return nil
}

// List 按更新时间倒序列出自选股
func (r *WatchlistRepository) List(ctx context.Context) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	if err := r.db.WithContext(ctx).Order("updated_at desc").Order("id desc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("查询自选股失败: %w", err)
	}
	return entries, nil
}

// Delete 删除自选股，不存在时返回 errs.ErrNotFound
func (r *WatchlistRepository) Delete(ctx context.Context, stockCode string) error {
	res := r.db.WithContext(ctx).Where("stock_code = ?", stockCode).Delete(&models.WatchlistEntry{})
	if res.Error != nil {
		return fmt.Errorf("删除自选股失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
