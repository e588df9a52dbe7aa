package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jialazhu/okx1204/internal/market"
)

func TestSMAInsufficientData(t *testing.T) {
	assert.Equal(t, 0.0, SMA([]float64{1, 2, 3}, 5))
	assert.Equal(t, 0.0, SMA(nil, 3))
}

func TestSMAWindow(t *testing.T) {
	series := []float64{10, 20, 30, 40}
	assert.InDelta(t, 35.0, SMA(series, 2), 1e-9)
	assert.InDelta(t, 25.0, SMA(series, 4), 1e-9)
}

func TestStdDevPopulation(t *testing.T) {
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, StdDev(series, 8), 1e-9)
	assert.Equal(t, 0.0, StdDev(series, 9))
}

func TestRSIInsufficientDataIsNeutral(t *testing.T) {
	prices := []float64{100, 101, 102}
	assert.Equal(t, 50.0, RSI(prices, 14))
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	prices := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		prices = append(prices, 100+float64(i))
	}
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestRSIBounded(t *testing.T) {
	prices := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.1, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.0, 46.03, 46.41, 46.22,
		45.64, 46.21, 46.25, 45.71, 46.45, 45.78, 45.35, 44.03, 44.18, 44.22}
	v := RSI(prices, 14)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 100.0)
}

func TestEMAInsufficientDataReturnsLastPrice(t *testing.T) {
	prices := []float64{9, 10, 11}
	assert.Equal(t, 11.0, EMA(prices, 20))
	assert.Equal(t, 0.0, EMA(nil, 20))
}

func TestEMASeededByFirstElement(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10}
	assert.InDelta(t, 10.0, EMA(prices, 5), 1e-9)

	rising := []float64{1, 2, 3, 4, 5}
	v := EMA(rising, 5)
	assert.Greater(t, v, 1.0)
	assert.Less(t, v, 5.0)
}

func TestMACDSignalApproximation(t *testing.T) {
	prices := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		prices = append(prices, 100+float64(i)*0.5)
	}
	macd, signal, hist := MACD(prices)
	assert.InDelta(t, macd*0.8, signal, 1e-9)
	assert.InDelta(t, macd-signal, hist, 1e-9)
}

func TestBollingerBands(t *testing.T) {
	prices := make([]float64, 0, 25)
	for i := 0; i < 25; i++ {
		prices = append(prices, 100+float64(i%5))
	}
	upper, mid, lower := Bollinger(prices, 20, 2)
	require.NotZero(t, mid)
	assert.Greater(t, upper, mid)
	assert.Less(t, lower, mid)
	assert.InDelta(t, upper-mid, mid-lower, 1e-9)

	u, m, l := Bollinger(prices[:5], 20, 2)
	assert.Zero(t, u)
	assert.Zero(t, m)
	assert.Zero(t, l)
}

func TestKDJInsufficientDataIsNeutral(t *testing.T) {
	k, d, j := KDJ([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 9)
	assert.Equal(t, 50.0, k)
	assert.Equal(t, 50.0, d)
	assert.Equal(t, 50.0, j)
}

func TestKDJScaleInvariantRelation(t *testing.T) {
	highs := []float64{10, 11, 12, 13, 14, 15, 14, 13, 14, 15, 16, 17}
	lows := []float64{9, 10, 11, 12, 13, 14, 13, 12, 13, 14, 15, 16}
	closes := []float64{9.5, 10.5, 11.5, 12.5, 13.5, 14.5, 13.5, 12.5, 13.5, 14.5, 15.5, 16.5}

	k1, d1, j1 := KDJ(highs, lows, closes, 9)
	assert.InDelta(t, 3*k1-2*d1, j1, 1e-9)

	scale := func(in []float64) []float64 {
		out := make([]float64, len(in))
		for i, v := range in {
			out[i] = v * 1000
		}
		return out
	}
	k2, d2, j2 := KDJ(scale(highs), scale(lows), scale(closes), 9)
	assert.InDelta(t, k1, k2, 1e-9)
	assert.InDelta(t, d1, d2, 1e-9)
	assert.InDelta(t, j1, j2, 1e-9)
}

func TestKDJZeroRangeUsesNeutralRSV(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	k, d, j := KDJ(flat, flat, flat, 9)
	assert.InDelta(t, 50.0, k, 1e-9)
	assert.InDelta(t, 50.0, d, 1e-9)
	assert.InDelta(t, 50.0, j, 1e-9)
}

func TestComputeSnapshotOnNormalizedCandles(t *testing.T) {
	// 模拟接口返回最新在前的序列，归一化后最旧应在 index 0
	newestFirst := make(market.Candles, 0, 60)
	for i := 59; i >= 0; i-- {
		price := 100 + float64(i)*0.1
		newestFirst = append(newestFirst, market.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    10,
		})
	}
	normalized := market.NormalizeOldestFirst(newestFirst)
	require.Equal(t, int64(0), normalized[0].Timestamp)
	require.Equal(t, int64(59)*60_000, normalized[len(normalized)-1].Timestamp)

	snap := ComputeSnapshot(normalized)
	assert.InDelta(t, 105.9, snap.Price, 1e-9)
	assert.Greater(t, snap.RSI14, 50.0) // 单边上涨
	assert.NotZero(t, snap.SMA20)
	assert.NotZero(t, snap.BollMid)
}
