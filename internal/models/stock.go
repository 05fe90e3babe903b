package models

import (
	"time"

	"gorm.io/datatypes"
)

// PriceBar 日线行情
type PriceBar struct {
	Date   string  `json:"date"`   // 交易日期 YYYY-MM-DD
	Open   float64 `json:"open"`   // 开盘价
	Close  float64 `json:"close"`  // 收盘价
	Low    float64 `json:"low"`    // 最低价
	High   float64 `json:"high"`   // 最高价
	Volume float64 `json:"volume"` // 成交量
}

// WatchlistEntry 自选股记录，每次完整分析后按股票代码覆盖写入
type WatchlistEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StockCode  string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"stock_code"` // 股票代码
	StockName  string         `gorm:"type:varchar(50)" json:"stock_name"`                      // 股票名称
	AddedTime  time.Time      `json:"added_time"`                                              // 加入时间
	Highlight  bool           `json:"highlight"`                                               // 是否高亮
	Strategies datatypes.JSON `json:"strategies"`                                              // 策略分析结果
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (WatchlistEntry) TableName() string {
	return "stocks"
}
