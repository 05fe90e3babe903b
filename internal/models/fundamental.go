package models

import (
	"time"

	"gorm.io/datatypes"
)

// 数据来源标记
const (
	DataSourceReal     = "akshare_real_timely"
	DataSourceFallback = "fallback_simulation"
	DataPeriod         = "quarterly_and_semi_annual"
)

// FundamentalFacts 单只股票的基本面数据
type FundamentalFacts struct {
	StockCode        string   `json:"stock_code"`
	StockName        string   `json:"stock_name"`
	CurrentPrice     float64  `json:"current_price"`
	MarketCap        float64  `json:"market_cap"` // 亿元
	PERatio          float64  `json:"pe_ratio"`
	PBRatio          float64  `json:"pb_ratio"`
	DividendYield    float64  `json:"dividend_yield"` // %
	ROE              float64  `json:"roe"`            // %
	RevenueGrowth    float64  `json:"revenue_growth"` // 季度同比 %
	SemiAnnualGrowth *float64 `json:"semi_annual_growth"`
	DebtRatio        float64  `json:"debt_ratio"` // %
	Industry         string   `json:"industry"`
	ListDate         string   `json:"list_date"`
	DataSource       string   `json:"data_source"`
	DataPeriod       string   `json:"data_period"`
	LastUpdate       string   `json:"last_update"`
	CacheHit         bool     `json:"cache_hit,omitempty"`
	CacheSource      string   `json:"cache_source,omitempty"`
}

// IsFallback 是否为模拟数据
func (f FundamentalFacts) IsFallback() bool {
	return f.DataSource == DataSourceFallback
}

// FundamentalCache 基本面数据缓存
type FundamentalCache struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StockCode  string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"stock_code"` // 股票代码
	Data       datatypes.JSON `json:"data"`                                                    // 序列化的基本面数据
	DataSource string         `gorm:"type:varchar(50)" json:"data_source"`                     // 数据来源
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ExpiresAt  time.Time      `gorm:"index" json:"expires_at"` // 过期时间
}

// TableName 指定表名
func (FundamentalCache) TableName() string {
	return "fundamental_cache"
}

// ErrorLog 错误日志
type ErrorLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StockCode    string    `gorm:"type:varchar(20);index" json:"stock_code"` // 股票代码
	ErrorType    string    `gorm:"type:varchar(50)" json:"error_type"`       // 错误类型
	ErrorMessage string    `gorm:"type:text" json:"error_message"`           // 错误信息
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ErrorLog) TableName() string {
	return "error_logs"
}
