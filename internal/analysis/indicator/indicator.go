// Package indicator 提供纯函数形式的技术指标计算。
// 所有函数无状态、无 I/O；数据不足时返回文档化的中性哨兵值，
// 绝不返回 NaN 或 panic，调用方需要把哨兵值与真实计算值区分开。
package indicator

import "math"

// SMA 计算最近 period 个元素的算术均值。
// 数据不足时返回 0（哨兵，调用方不可当作真实均价使用）。
func SMA(series []float64, period int) float64 {
	if period <= 0 || len(series) < period {
		return 0
	}
	sum := 0.0
	for _, v := range series[len(series)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// StdDev 计算最近 period 个元素的总体标准差，均值取同窗口 SMA。
// 数据不足时返回 0。
func StdDev(series []float64, period int) float64 {
	if period <= 0 || len(series) < period {
		return 0
	}
	mean := SMA(series, period)
	sum := 0.0
	for _, v := range series[len(series)-period:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}

// RSI 计算 Wilder 平滑 RSI。
// 前 period 个变动取简单均值作种子，之后逐样本平滑：
// avg = (avg*(period-1) + value) / period。
// 数据不足返回 50（中性）；平均跌幅为 0 时返回 100，避免除零。
func RSI(prices []float64, period int) float64 {
	if period <= 0 {
		period = 14
	}
	if len(prices) < period+1 {
		return 50
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA 标准指数平滑，k=2/(period+1)，以切片首元素为种子向前推进。
// 数据不足时直接返回最后一个价格（近似处理，非真实 EMA）。
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}
	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// MACD 返回 (macd, signal, histogram)。
// macd = EMA12 − EMA26；signal 取 0.8×macd 的近似值，
// 不是真实的 9 周期信号线 EMA，为与既有行为保持一致而保留。
func MACD(prices []float64) (float64, float64, float64) {
	macd := EMA(prices, 12) - EMA(prices, 26)
	signal := macd * 0.8
	return macd, signal, macd - signal
}

// Bollinger 返回 (upper, mid, lower)，mid 为 SMA，带宽 = mult×总体标准差。
// 数据不足时三个值均为 0 哨兵。
func Bollinger(prices []float64, period int, mult float64) (float64, float64, float64) {
	if period <= 0 {
		period = 20
	}
	if mult <= 0 {
		mult = 2
	}
	mid := SMA(prices, period)
	if mid == 0 {
		return 0, 0, 0
	}
	sd := StdDev(prices, period)
	return mid + mult*sd, mid, mid - mult*sd
}

// KDJ 返回 (K, D, J)。
// RSV = (close − lowestLow) / (highestHigh − lowestLow) × 100，区间为 0 时取 50。
// K、D 以 2/3 旧值 + 1/3 新值平滑，J = 3K − 2D。
// 必须从第一个完整窗口开始顺序迭代整段历史，平滑才能收敛到稳态，
// 不能只用最后一个窗口算。
func KDJ(highs, lows, closes []float64, period int) (float64, float64, float64) {
	if period <= 0 {
		period = 9
	}
	n := len(closes)
	if n < period || len(highs) < n || len(lows) < n {
		return 50, 50, 50
	}
	k, d := 50.0, 50.0
	for i := period - 1; i < n; i++ {
		lowest := lows[i-period+1]
		highest := highs[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if lows[j] < lowest {
				lowest = lows[j]
			}
			if highs[j] > highest {
				highest = highs[j]
			}
		}
		rsv := 50.0
		if highest != lowest {
			rsv = (closes[i] - lowest) / (highest - lowest) * 100
		}
		k = k*2/3 + rsv/3
		d = d*2/3 + k/3
	}
	return k, d, 3*k - 2*d
}
