// Package indicator 技术指标计算，输入按日期升序排列的收盘价序列，
// 返回与输入等长的序列，未定义的位置为 NaN。
package indicator

import "math"

// Defined 数值是否已定义
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Last 序列最后一个值，空序列返回 NaN
func Last(series []float64) float64 {
	return At(series, len(series)-1)
}

// At 读取序列中的值，越界时返回 NaN
func At(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return math.NaN()
	}
	return series[i]
}

// Mean 算术平均
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev 样本标准差（自由度 n-1），少于两个值时返回 NaN
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Max 最大值
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min 最小值
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// SMA 简单移动平均，前 window-1 个位置未定义
func SMA(values []float64, window int) []float64 {
	return rolling(values, window, Mean)
}

// RollingStd 滚动样本标准差
func RollingStd(values []float64, window int) []float64 {
	return rolling(values, window, StdDev)
}

func rolling(values []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(values[i-window+1 : i+1])
	}
	return out
}

// EMA 指数移动平均，alpha = 2/(span+1)，采用调整式加权：
// 第 t 个值为 sum((1-alpha)^i * x[t-i]) / sum((1-alpha)^i)，从第一个值起即有定义
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span < 1 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1 - alpha
	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// MACDResult MACD 指标序列
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD 计算 MACD，数据少于 slow 根时返回 false
func MACD(closes []float64, fast, slow, signal int) (MACDResult, bool) {
	if len(closes) < slow {
		return MACDResult{}, false
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}, true
}

// RSI 相对强弱指标，涨跌幅按 period 窗口简单平均。
// 平均跌幅为 0 且平均涨幅为正时为 100；窗口内无涨跌时未定义。
// 数据少于 period+1 根时返回 false。
func RSI(closes []float64, period int) ([]float64, bool) {
	if period < 1 || len(closes) < period+1 {
		return nil, false
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}
	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	out := make([]float64, len(closes))
	for i := range closes {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
			out[i] = math.NaN()
		case l == 0 && g == 0:
			out[i] = math.NaN()
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out, true
}

// BollingerResult 布林带序列
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger 布林带：中轨为 period 日均线，上下轨为中轨 ± k 倍滚动标准差。
// 数据少于 period 根时返回 false。
func Bollinger(closes []float64, period int, k float64) (BollingerResult, bool) {
	if period < 1 || len(closes) < period {
		return BollingerResult{}, false
	}
	middle := SMA(closes, period)
	std := RollingStd(closes, period)

	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}
	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}, true
}
