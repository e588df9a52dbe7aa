package indicator

import "github.com/jialazhu/okx1204/internal/market"

// Snapshot 单个决策周期内核心指标的打包结果，
// 风险分析与决策复核共用同一份，保证口径一致。
type Snapshot struct {
	Price      float64 `json:"price"`
	SMA20      float64 `json:"sma_20"`
	RSI14      float64 `json:"rsi_14"`
	EMA20      float64 `json:"ema_20"`
	EMA50      float64 `json:"ema_50"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	BollUpper  float64 `json:"boll_upper"`
	BollMid    float64 `json:"boll_mid"`
	BollLower  float64 `json:"boll_lower"`
	K          float64 `json:"kdj_k"`
	D          float64 `json:"kdj_d"`
	J          float64 `json:"kdj_j"`
}

// ComputeSnapshot 从按旧→新排序的 K 线序列计算核心指标快照。
func ComputeSnapshot(candles market.Candles) Snapshot {
	var snap Snapshot
	if len(candles) == 0 {
		return snap
	}
	closes := candles.Closes()
	highs := candles.Highs()
	lows := candles.Lows()

	snap.Price = closes[len(closes)-1]
	snap.SMA20 = SMA(closes, 20)
	snap.RSI14 = RSI(closes, 14)
	snap.EMA20 = EMA(closes, 20)
	snap.EMA50 = EMA(closes, 50)
	snap.MACD, snap.MACDSignal, snap.MACDHist = MACD(closes)
	snap.BollUpper, snap.BollMid, snap.BollLower = Bollinger(closes, 20, 2)
	snap.K, snap.D, snap.J = KDJ(highs, lows, closes, 9)
	return snap
}
