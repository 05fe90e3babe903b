package fundamental

import (
	"hash/fnv"
	"math"
	"stock_signal/internal/models"
)

// Fallback 数据源不可用时按股票代码生成模拟基本面数据。
// 同一代码每次生成的结果完全一致。
func Fallback(stockCode string) models.FundamentalFacts {
	g := newSeq(stockCode)

	annualGrowth := round2(g.uniform(-20, 50))
	quarterlyGrowth := round2(annualGrowth + g.uniform(-10, 15))
	semiAnnualGrowth := round2(annualGrowth + g.uniform(-5, 8))

	return models.FundamentalFacts{
		StockCode:        stockCode,
		StockName:        "股票" + stockCode,
		CurrentPrice:     round2(g.uniform(5, 50)),
		MarketCap:        round2(g.uniform(50, 5000)),
		PERatio:          round2(g.uniform(8, 50)),
		PBRatio:          round2(g.uniform(0.8, 8)),
		DividendYield:    round2(g.uniform(0, 8)),
		ROE:              round2(g.uniform(5, 25)),
		RevenueGrowth:    quarterlyGrowth,
		SemiAnnualGrowth: &semiAnnualGrowth,
		DebtRatio:        round2(g.uniform(10, 80)),
		Industry:         "模拟行业",
		ListDate:         "20100101",
		DataSource:       models.DataSourceFallback,
		DataPeriod:       models.DataPeriod,
	}
}

// seq 由股票代码哈希（FNV-1a）作种子的 splitmix64 序列
type seq struct {
	state uint64
}

func newSeq(key string) *seq {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return &seq{state: h.Sum64()}
}

func (s *seq) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// unit [0, 1) 区间的均匀值
func (s *seq) unit() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

func (s *seq) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.unit()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
