package strategy

import (
	"testing"

	"stock_signal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// barsFromCloses 由收盘价构造 K 线，最高最低取收盘价上下 1%
func barsFromCloses(closes ...float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{Open: c, Close: c, High: c * 1.01, Low: c * 0.99, Volume: 1000}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestHighlight(t *testing.T) {
	t.Run("数据不足30根", func(t *testing.T) {
		for _, n := range []int{0, 1, 15, 29} {
			res := Highlight(barsFromCloses(repeat(10, n)...))
			assert.False(t, res.Result, "n=%d", n)
			assert.NotEmpty(t, res.Description)
		}
	})

	build := func(recentVolume float64) []models.PriceBar {
		var bars []models.PriceBar
		for i := 0; i < 15; i++ {
			c := 9.0
			if i%2 == 1 {
				c = 11.0
			}
			bars = append(bars, models.PriceBar{Close: c, Volume: 1000})
		}
		for i := 0; i < 15; i++ {
			bars = append(bars, models.PriceBar{Close: 10, Volume: recentVolume})
		}
		return bars
	}

	t.Run("价稳缩量", func(t *testing.T) {
		assert.True(t, Highlight(build(500)).Result)
	})
	t.Run("成交量未明显萎缩", func(t *testing.T) {
		assert.False(t, Highlight(build(900)).Result)
	})
}

func TestMACrossover(t *testing.T) {
	t.Run("金叉买入", func(t *testing.T) {
		res := MACrossover(barsFromCloses(append(repeat(10, 24), 20)...), 5, 20)
		assert.Equal(t, Buy, res.Signal)
		assert.Equal(t, "bullish", res.CurrentTrend)
		require.NotNil(t, res.MAShort)
		require.NotNil(t, res.MALong)
		assert.InDelta(t, 12.0, *res.MAShort, 1e-9)
		assert.InDelta(t, 10.5, *res.MALong, 1e-9)
		assert.Equal(t, 5, res.ShortPeriod)
		assert.Equal(t, 20, res.LongPeriod)
	})

	t.Run("死叉卖出", func(t *testing.T) {
		res := MACrossover(barsFromCloses(append(repeat(10, 24), 0)...), 5, 20)
		assert.Equal(t, Sell, res.Signal)
		assert.Equal(t, "bearish", res.CurrentTrend)
	})

	t.Run("无交叉持有", func(t *testing.T) {
		res := MACrossover(barsFromCloses(repeat(10, 25)...), 5, 20)
		assert.Equal(t, Hold, res.Signal)
	})

	t.Run("前一根长均线未定义", func(t *testing.T) {
		res := MACrossover(barsFromCloses(repeat(10, 20)...), 5, 20)
		assert.Equal(t, InsufficientData, res.Signal)
		assert.Equal(t, "unknown", res.CurrentTrend)
		assert.NotNil(t, res.MALong)
	})
}

func TestMACD(t *testing.T) {
	t.Run("数据不足", func(t *testing.T) {
		res := MACD(barsFromCloses(repeat(10, 25)...), 12, 26, 9)
		assert.Equal(t, InsufficientData, res.Signal)
		assert.Nil(t, res.MACD)
	})

	t.Run("上穿信号线", func(t *testing.T) {
		res := MACD(barsFromCloses(append(repeat(0, 40), 1)...), 12, 26, 9)
		assert.Equal(t, Buy, res.Signal)
		assert.Equal(t, "bullish", res.CurrentTrend)
		require.NotNil(t, res.Histogram)
		assert.Greater(t, *res.Histogram, 0.0)
	})

	t.Run("下穿信号线", func(t *testing.T) {
		res := MACD(barsFromCloses(append(repeat(0, 40), -1)...), 12, 26, 9)
		assert.Equal(t, Sell, res.Signal)
		assert.Equal(t, "bearish", res.CurrentTrend)
	})
}

func TestRSI(t *testing.T) {
	var rising []float64
	for i := 1; i <= 20; i++ {
		rising = append(rising, float64(i))
	}

	res := RSI(barsFromCloses(rising...), 14, 30, 70)
	require.NotNil(t, res.RSI)
	assert.Equal(t, 100.0, *res.RSI)
	assert.Equal(t, Sell, res.Signal)
	assert.Equal(t, "overbought", res.CurrentLevel)
	assert.Equal(t, 30.0, res.OversoldThreshold)

	flat := RSI(barsFromCloses(repeat(10, 20)...), 14, 30, 70)
	assert.Equal(t, InsufficientData, flat.Signal)
	assert.Nil(t, flat.RSI)

	short := RSI(barsFromCloses(repeat(10, 14)...), 14, 30, 70)
	assert.Equal(t, InsufficientData, short.Signal)
}

func TestBollinger(t *testing.T) {
	res := Bollinger(barsFromCloses(append(repeat(10, 19), 20)...), 20, 2)
	assert.Equal(t, Sell, res.Signal)
	assert.Equal(t, "upper", res.CurrentPosition)
	require.NotNil(t, res.BandWidth)
	assert.InDelta(t, 10.5, *res.MiddleBand, 1e-9)

	res = Bollinger(barsFromCloses(append(repeat(10, 19), 0)...), 20, 2)
	assert.Equal(t, Buy, res.Signal)
	assert.Equal(t, "lower", res.CurrentPosition)

	var rising []float64
	for i := 1; i <= 20; i++ {
		rising = append(rising, float64(i))
	}
	res = Bollinger(barsFromCloses(rising...), 20, 2)
	assert.Equal(t, Hold, res.Signal)
	assert.Equal(t, "upper_middle", res.CurrentPosition)

	res = Bollinger(barsFromCloses(repeat(10, 19)...), 20, 2)
	assert.Equal(t, InsufficientData, res.Signal)
}

func TestMomentum(t *testing.T) {
	cases := []struct {
		last     float64
		signal   Signal
		strength string
	}{
		{12, Buy, "strong"},
		{10.8, Hold, "moderate"},
		{10.2, Hold, "normal"},
		{9, Hold, "weak"},
		{8, Sell, "very_weak"},
	}
	for _, tc := range cases {
		closes := append(repeat(10, 20), tc.last)
		res := Momentum(barsFromCloses(closes...), 20)
		assert.Equal(t, tc.signal, res.Signal, "last=%v", tc.last)
		assert.Equal(t, tc.strength, res.MomentumStrength, "last=%v", tc.last)
		require.NotNil(t, res.MomentumPercentage)
		assert.InDelta(t, (tc.last/10-1)*100, *res.MomentumPercentage, 1e-9)
	}

	res := Momentum(barsFromCloses(repeat(10, 20)...), 20)
	assert.Equal(t, InsufficientData, res.Signal)
	assert.Equal(t, 20, res.LookbackPeriod)
}

func TestBreakout(t *testing.T) {
	build := func(close, volume float64) []models.PriceBar {
		var bars []models.PriceBar
		for i := 0; i < 20; i++ {
			bars = append(bars, models.PriceBar{Close: 10, High: 11, Low: 9, Volume: 100})
		}
		return append(bars, models.PriceBar{Close: close, High: close, Low: close, Volume: volume})
	}

	cases := []struct {
		name   string
		close  float64
		volume float64
		signal Signal
		kind   string
	}{
		{"放量向上突破", 12, 200, Buy, "upward_breakout"},
		{"放量向下突破", 8, 300, Sell, "downward_breakout"},
		{"量能不足", 12, 100, Hold, "potential_breakout"},
		{"接近阻力位", 10.9, 100, Hold, "potential_breakout"},
		{"区间内", 10, 100, Hold, "none"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Breakout(build(tc.close, tc.volume), 20, 1.5)
			assert.Equal(t, tc.signal, res.Signal)
			assert.Equal(t, tc.kind, res.BreakoutType)
			assert.Equal(t, 11.0, *res.ResistanceLevel)
			assert.Equal(t, 9.0, *res.SupportLevel)
			assert.Equal(t, 1.5, res.VolumeThreshold)
		})
	}

	t.Run("平均成交量为0", func(t *testing.T) {
		bars := build(12, 500)
		for i := 0; i < 20; i++ {
			bars[i].Volume = 0
		}
		res := Breakout(bars, 20, 1.5)
		assert.Equal(t, 1.0, *res.VolumeRatio)
		assert.Equal(t, "potential_breakout", res.BreakoutType)
	})

	t.Run("数据不足", func(t *testing.T) {
		res := Breakout(build(10, 100)[1:], 20, 1.5)
		assert.Equal(t, InsufficientData, res.Signal)
		assert.Nil(t, res.CurrentPrice)
	})
}

func TestAnalyzeTechnical_DoesNotMutateInput(t *testing.T) {
	bars := barsFromCloses(append(repeat(10, 40), 12)...)
	snapshot := append([]models.PriceBar(nil), bars...)

	res := AnalyzeTechnical(bars, DefaultParams())

	assert.Equal(t, snapshot, bars)
	assert.Equal(t, Buy, res.MACrossover.Signal)
	assert.Equal(t, 20, res.Momentum.LookbackPeriod)
}
