// Package strategy 技术面与基本面策略分析
package strategy

import (
	"math"
	"stock_signal/internal/indicator"
	"stock_signal/internal/models"
)

// Signal 交易信号
type Signal string

const (
	Buy              Signal = "buy"
	Sell             Signal = "sell"
	Hold             Signal = "hold"
	InsufficientData Signal = "insufficient_data"
)

// Params 技术策略参数
type Params struct {
	MAShort              int
	MALong               int
	MACDFast             int
	MACDSlow             int
	MACDSignal           int
	RSIPeriod            int
	RSIOversold          float64
	RSIOverbought        float64
	BollingerPeriod      int
	BollingerK           float64
	MomentumLookback     int
	BreakoutPeriod       int
	BreakoutVolumeFactor float64
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{
		MAShort:              5,
		MALong:               20,
		MACDFast:             12,
		MACDSlow:             26,
		MACDSignal:           9,
		RSIPeriod:            14,
		RSIOversold:          30,
		RSIOverbought:        70,
		BollingerPeriod:      20,
		BollingerK:           2,
		MomentumLookback:     20,
		BreakoutPeriod:       20,
		BreakoutVolumeFactor: 1.5,
	}
}

func closes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func volumes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// ptr 已定义的数值返回指针，未定义返回 nil
func ptr(v float64) *float64 {
	if !indicator.Defined(v) {
		return nil
	}
	return &v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
