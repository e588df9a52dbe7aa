package indicator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/markcheno/go-talib"

	"github.com/jialazhu/okx1204/internal/market"
)

// Value 保存单个指标的最新值与状态描述。
type Value struct {
	Latest float64 `json:"latest"`
	State  string  `json:"state,omitempty"`
	Note   string  `json:"note,omitempty"`
}

// Report 汇总 talib 计算的辅助指标，供提示词与趋势确认使用。
type Report struct {
	Interval string           `json:"interval"`
	Count    int              `json:"count"`
	ATR      float64          `json:"atr"`
	Values   map[string]Value `json:"values"`
}

// ComputeReport 基于 K 线序列计算辅助指标快照（ATR/Stoch/WilliamsR/ROC/OBV）。
// 核心决策指标（RSI/EMA/MACD/BOLL/KDJ）由本包的纯函数单独计算。
func ComputeReport(candles market.Candles, interval string) (Report, error) {
	rep := Report{
		Interval: interval,
		Count:    len(candles),
		Values:   make(map[string]Value),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	closes := candles.Closes()
	highs := candles.Highs()
	lows := candles.Lows()
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}

	atrSeries := sanitizeSeries(talib.Atr(highs, lows, closes, 14))
	rep.ATR = lastValid(atrSeries)
	rep.Values["atr"] = Value{Latest: rep.ATR, State: "volatility", Note: "period=14"}

	k, d := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
	kSeries := sanitizeSeries(k)
	dSeries := sanitizeSeries(d)
	rep.Values["stoch_k"] = Value{
		Latest: lastValid(kSeries),
		State:  stochasticState(lastValid(kSeries)),
		Note:   fmt.Sprintf("d=%.2f", lastValid(dSeries)),
	}

	will := sanitizeSeries(talib.WillR(highs, lows, closes, 14))
	rep.Values["williams_r"] = Value{
		Latest: lastValid(will),
		State:  stochasticState(-lastValid(will)),
		Note:   "period=14",
	}

	rocSeries := sanitizeSeries(talib.Roc(closes, 9))
	rocVal := lastValid(rocSeries)
	rep.Values["roc"] = Value{Latest: rocVal, State: polarityState(rocVal), Note: "period=9"}

	obv := sanitizeSeries(talib.Obv(closes, volumes))
	rep.Values["obv"] = Value{Latest: lastValid(obv), State: polarityState(lastDelta(obv)), Note: "volume thrust"}

	return rep, nil
}

// Describe 生成提示词用的一行摘要，按指标名排序保证输出稳定。
func (r Report) Describe() string {
	if len(r.Values) == 0 {
		return ""
	}
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		if name == "atr" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := r.Values[name]
		if v.State != "" {
			parts = append(parts, fmt.Sprintf("%s=%.2f(%s)", name, v.Latest, v.State))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%.2f", name, v.Latest))
		}
	}
	return strings.Join(parts, " ")
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, round4(v))
	}
	return out
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

// lastDelta 序列末两项之差，长度不足时为 0。
func lastDelta(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return series[len(series)-1] - series[len(series)-2]
}

func polarityState(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	default:
		return "flat"
	}
}

func stochasticState(v float64) string {
	switch {
	case v >= 80:
		return "overbought"
	case v <= 20:
		return "oversold"
	default:
		return "neutral"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
