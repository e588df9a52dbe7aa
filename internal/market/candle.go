package market

import "time"

// Candle 单根 K 线。Timestamp 为开盘时间（毫秒）。
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type Candles []Candle

// Ticker 最新行情快照，每个轮询周期刷新，不保留历史。
type Ticker struct {
	Last      float64   `json:"last"`
	Open24h   float64   `json:"open_24h"`
	Volume24h float64   `json:"volume_24h"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeOldestFirst 保证 K 线序列按时间从旧到新排列。
// 交易所行情接口返回最新在前，指标计算要求最旧在 index 0。
func NormalizeOldestFirst(cs Candles) Candles {
	if len(cs) < 2 {
		return cs
	}
	if cs[0].Timestamp <= cs[len(cs)-1].Timestamp {
		return cs
	}
	out := make(Candles, len(cs))
	for i, c := range cs {
		out[len(cs)-1-i] = c
	}
	return out
}

// Closes 提取收盘价序列。
func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// Highs 提取最高价序列。
func (cs Candles) Highs() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.High
	}
	return out
}

// Lows 提取最低价序列。
func (cs Candles) Lows() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Low
	}
	return out
}
