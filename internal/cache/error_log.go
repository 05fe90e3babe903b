package cache

import (
	"context"
	"fmt"
	"stock_signal/internal/errs"
	"stock_signal/internal/metrics"
	"stock_signal/internal/models"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 错误日志类型
const (
	ErrorTypeFetch           = "fundamental_data_fetch"
	ErrorTypePEG             = "peg_analysis"
	ErrorTypeValueFactor     = "value_factor_analysis"
	ErrorTypeFinancialHealth = "financial_health_analysis"
)

const maxErrorMessageLen = 500

// ErrorLogger 写入 error_logs 表，写入失败只记录日志不向调用方返回
type ErrorLogger struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewErrorLogger 创建错误日志记录器
func NewErrorLogger(db *gorm.DB, m *metrics.Metrics, logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{db: db, metrics: m, logger: logger}
}

// Log 记录一条错误
func (l *ErrorLogger) Log(ctx context.Context, stockCode, errorType, message string) {
	if l == nil || l.db == nil {
		return
	}
	entry := models.ErrorLog{
		StockCode:    stockCode,
		ErrorType:    errorType,
		ErrorMessage: errs.Truncate(message, maxErrorMessageLen),
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		l.logger.Warn("写入错误日志失败",
			zap.String("stock_code", stockCode),
			zap.String("error_type", errorType),
			zap.Error(err))
		return
	}
	l.metrics.ErrorLogged(errorType)
}

// Prune 删除 before 之前的错误日志
func (l *ErrorLogger) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.ErrorLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: 清理错误日志失败: %w", errs.ErrPersistence, res.Error)
	}
	return res.RowsAffected, nil
}
