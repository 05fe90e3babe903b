package strategy

import (
	"stock_signal/internal/indicator"
	"stock_signal/internal/models"
)

const highlightDescription = "价格稳定性分析和缩量分析"

// HighlightResult 高亮策略结果
type HighlightResult struct {
	Result      bool   `json:"result"`
	Description string `json:"description"`
}

// Highlight 最近 15 个交易日价格波动不超过前 15 日的 1.1 倍且成交量萎缩到 0.8 倍以下时高亮。
// 少于 30 根 K 线时返回 false。
func Highlight(bars []models.PriceBar) HighlightResult {
	res := HighlightResult{Description: highlightDescription}
	n := len(bars)
	if n < 30 {
		return res
	}
	c, v := closes(bars), volumes(bars)

	recentStd := indicator.StdDev(c[n-15:])
	prevStd := indicator.StdDev(c[n-30 : n-15])
	recentVol := indicator.Mean(v[n-15:])
	prevVol := indicator.Mean(v[n-30 : n-15])

	res.Result = recentStd <= prevStd*1.1 && recentVol < prevVol*0.8
	return res
}

// MACrossoverResult 双均线策略结果
type MACrossoverResult struct {
	Signal       Signal   `json:"signal"`
	CurrentTrend string   `json:"current_trend"`
	MAShort      *float64 `json:"ma_short"`
	MALong       *float64 `json:"ma_long"`
	ShortPeriod  int      `json:"short_period"`
	LongPeriod   int      `json:"long_period"`
}

// MACrossover 短均线上穿长均线买入，下穿卖出
func MACrossover(bars []models.PriceBar, short, long int) MACrossoverResult {
	res := MACrossoverResult{
		Signal:       InsufficientData,
		CurrentTrend: "unknown",
		ShortPeriod:  short,
		LongPeriod:   long,
	}
	n := len(bars)
	if n < 2 {
		return res
	}
	c := closes(bars)
	maShort := indicator.SMA(c, short)
	maLong := indicator.SMA(c, long)

	curShort, curLong := maShort[n-1], maLong[n-1]
	prevShort, prevLong := maShort[n-2], maLong[n-2]
	res.MAShort = ptr(curShort)
	res.MALong = ptr(curLong)

	if !indicator.Defined(curShort) || !indicator.Defined(curLong) ||
		!indicator.Defined(prevShort) || !indicator.Defined(prevLong) {
		return res
	}

	res.Signal = crossSignal(prevShort, prevLong, curShort, curLong)
	res.CurrentTrend = trend(curShort, curLong)
	return res
}

// crossSignal 快线由下向上穿过慢线为买入，反之为卖出
func crossSignal(prevFast, prevSlow, curFast, curSlow float64) Signal {
	switch {
	case prevFast <= prevSlow && curFast > curSlow:
		return Buy
	case prevFast >= prevSlow && curFast < curSlow:
		return Sell
	default:
		return Hold
	}
}

func trend(fast, slow float64) string {
	if fast > slow {
		return "bullish"
	}
	return "bearish"
}

// MACDResult MACD 策略结果
type MACDResult struct {
	Signal       Signal   `json:"signal"`
	CurrentTrend string   `json:"current_trend"`
	MACD         *float64 `json:"macd"`
	SignalLine   *float64 `json:"signal_line"`
	Histogram    *float64 `json:"histogram"`
}

// MACD MACD 线上穿信号线买入，下穿卖出
func MACD(bars []models.PriceBar, fast, slow, signal int) MACDResult {
	res := MACDResult{Signal: InsufficientData, CurrentTrend: "unknown"}
	m, ok := indicator.MACD(closes(bars), fast, slow, signal)
	n := len(bars)
	if !ok || n < 2 {
		return res
	}

	cur, curSig := m.MACD[n-1], m.Signal[n-1]
	prev, prevSig := m.MACD[n-2], m.Signal[n-2]
	res.MACD = ptr(cur)
	res.SignalLine = ptr(curSig)
	res.Histogram = ptr(m.Histogram[n-1])

	if !indicator.Defined(cur) || !indicator.Defined(curSig) ||
		!indicator.Defined(prev) || !indicator.Defined(prevSig) {
		return res
	}

	res.Signal = crossSignal(prev, prevSig, cur, curSig)
	res.CurrentTrend = trend(cur, curSig)
	return res
}

// RSIResult RSI 策略结果
type RSIResult struct {
	Signal              Signal   `json:"signal"`
	CurrentLevel        string   `json:"current_level"`
	RSI                 *float64 `json:"rsi"`
	OversoldThreshold   float64  `json:"oversold_threshold"`
	OverboughtThreshold float64  `json:"overbought_threshold"`
}

// RSI 超卖买入，超买卖出
func RSI(bars []models.PriceBar, period int, oversold, overbought float64) RSIResult {
	res := RSIResult{
		Signal:              InsufficientData,
		CurrentLevel:        "unknown",
		OversoldThreshold:   oversold,
		OverboughtThreshold: overbought,
	}
	series, ok := indicator.RSI(closes(bars), period)
	if !ok {
		return res
	}
	latest := indicator.Last(series)
	if !indicator.Defined(latest) {
		return res
	}

	res.RSI = ptr(latest)
	switch {
	case latest <= oversold:
		res.Signal, res.CurrentLevel = Buy, "oversold"
	case latest >= overbought:
		res.Signal, res.CurrentLevel = Sell, "overbought"
	default:
		res.Signal, res.CurrentLevel = Hold, "normal"
	}
	return res
}

// BollingerResult 布林带策略结果
type BollingerResult struct {
	Signal          Signal   `json:"signal"`
	CurrentPosition string   `json:"current_position"`
	Price           *float64 `json:"price"`
	UpperBand       *float64 `json:"upper_band"`
	MiddleBand      *float64 `json:"middle_band"`
	LowerBand       *float64 `json:"lower_band"`
	BandWidth       *float64 `json:"band_width,omitempty"`
}

// Bollinger 价格触及下轨买入，触及上轨卖出
func Bollinger(bars []models.PriceBar, period int, k float64) BollingerResult {
	res := BollingerResult{Signal: InsufficientData, CurrentPosition: "unknown"}
	c := closes(bars)
	bands, ok := indicator.Bollinger(c, period, k)
	if !ok {
		return res
	}

	price := indicator.Last(c)
	upper, middle, lower := indicator.Last(bands.Upper), indicator.Last(bands.Middle), indicator.Last(bands.Lower)
	res.Price = ptr(price)
	if !indicator.Defined(upper) || !indicator.Defined(lower) {
		return res
	}

	res.UpperBand = ptr(upper)
	res.MiddleBand = ptr(middle)
	res.LowerBand = ptr(lower)
	res.BandWidth = ptr(upper - lower)

	switch {
	case price <= lower:
		res.Signal, res.CurrentPosition = Buy, "lower"
	case price >= upper:
		res.Signal, res.CurrentPosition = Sell, "upper"
	case price > middle:
		res.Signal, res.CurrentPosition = Hold, "upper_middle"
	default:
		res.Signal, res.CurrentPosition = Hold, "lower_middle"
	}
	return res
}

// MomentumResult 动量策略结果
type MomentumResult struct {
	Signal             Signal   `json:"signal"`
	MomentumStrength   string   `json:"momentum_strength"`
	MomentumValue      *float64 `json:"momentum_value"`
	MomentumPercentage *float64 `json:"momentum_percentage,omitempty"`
	LookbackPeriod     int      `json:"lookback_period"`
}

// Momentum 动量 = 现价 / lookback 日前价格 - 1
func Momentum(bars []models.PriceBar, lookback int) MomentumResult {
	res := MomentumResult{Signal: InsufficientData, MomentumStrength: "unknown", LookbackPeriod: lookback}
	n := len(bars)
	if lookback < 1 || n < lookback+1 {
		return res
	}
	current, past := bars[n-1].Close, bars[n-1-lookback].Close
	momentum := current/past - 1
	if !indicator.Defined(momentum) {
		return res
	}

	res.MomentumValue = ptr(momentum)
	res.MomentumPercentage = ptr(momentum * 100)
	switch {
	case momentum > 0.15:
		res.Signal, res.MomentumStrength = Buy, "strong"
	case momentum > 0.05:
		res.Signal, res.MomentumStrength = Hold, "moderate"
	case momentum > -0.05:
		res.Signal, res.MomentumStrength = Hold, "normal"
	case momentum > -0.15:
		res.Signal, res.MomentumStrength = Hold, "weak"
	default:
		res.Signal, res.MomentumStrength = Sell, "very_weak"
	}
	return res
}

// BreakoutResult 突破策略结果
type BreakoutResult struct {
	Signal          Signal   `json:"signal"`
	BreakoutType    string   `json:"breakout_type"`
	CurrentPrice    *float64 `json:"current_price"`
	ResistanceLevel *float64 `json:"resistance_level"`
	SupportLevel    *float64 `json:"support_level"`
	VolumeRatio     *float64 `json:"volume_ratio"`
	VolumeThreshold float64  `json:"volume_threshold"`
}

// Breakout 放量突破前 period 日（不含当日）最高价买入，放量跌破最低价卖出
func Breakout(bars []models.PriceBar, period int, volumeFactor float64) BreakoutResult {
	res := BreakoutResult{Signal: InsufficientData, BreakoutType: "unknown", VolumeThreshold: volumeFactor}
	n := len(bars)
	if period < 1 || n < period+1 {
		return res
	}

	current := bars[n-1]
	window := bars[n-1-period : n-1]
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, b := range window {
		highs[i] = b.High
		lows[i] = b.Low
	}
	resistance := indicator.Max(highs)
	support := indicator.Min(lows)
	avgVolume := indicator.Mean(volumes(window))

	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = current.Volume / avgVolume
	}

	res.CurrentPrice = ptr(current.Close)
	res.ResistanceLevel = ptr(resistance)
	res.SupportLevel = ptr(support)
	res.VolumeRatio = ptr(volumeRatio)

	price := current.Close
	switch {
	case price > resistance && volumeRatio >= volumeFactor:
		res.Signal, res.BreakoutType = Buy, "upward_breakout"
	case price < support && volumeRatio >= volumeFactor:
		res.Signal, res.BreakoutType = Sell, "downward_breakout"
	case price > resistance*0.98 || price < support*1.02:
		res.Signal, res.BreakoutType = Hold, "potential_breakout"
	default:
		res.Signal, res.BreakoutType = Hold, "none"
	}
	return res
}

// TechnicalResults 全部技术面策略结果
type TechnicalResults struct {
	Highlight   HighlightResult
	MACrossover MACrossoverResult
	MACD        MACDResult
	RSI         RSIResult
	Bollinger   BollingerResult
	Momentum    MomentumResult
	Breakout    BreakoutResult
}

// AnalyzeTechnical 按参数运行全部技术面策略
func AnalyzeTechnical(bars []models.PriceBar, p Params) TechnicalResults {
	return TechnicalResults{
		Highlight:   Highlight(bars),
		MACrossover: MACrossover(bars, p.MAShort, p.MALong),
		MACD:        MACD(bars, p.MACDFast, p.MACDSlow, p.MACDSignal),
		RSI:         RSI(bars, p.RSIPeriod, p.RSIOversold, p.RSIOverbought),
		Bollinger:   Bollinger(bars, p.BollingerPeriod, p.BollingerK),
		Momentum:    Momentum(bars, p.MomentumLookback),
		Breakout:    Breakout(bars, p.BreakoutPeriod, p.BreakoutVolumeFactor),
	}
}
