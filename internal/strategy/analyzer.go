package strategy

import (
	"fmt"

	"github.com/jialazhu/okx1204/internal/analysis/indicator"
	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/types"
)

// 风险阶段标签。RiskStage 带注释后缀时表示系统覆盖过候选止损。
const (
	StageNoPosition    = "空仓"
	StageLossAligned   = "亏损风控-趋势未破"
	StageLossBroken    = "亏损风控-趋势破坏"
	StageProfitBuffer  = "利润保护-保本缓冲"
	StageProfitLockBE  = "利润保护-锁定保本"
	StageProfitPartial = "利润保护-部分锁定"
	StageProfitDeep    = "利润保护-深度锁定"

	ratchetNote = "（止损被系统钳制）"
)

// 行动提示，供提示词与决策复核参考。
const (
	HintDCA         = "dca"
	HintHold        = "hold"
	HintTightenStop = "tighten_stop"
	HintPyramid     = "pyramid"
)

// AnalyzeInput 持仓风险分析的输入。
type AnalyzeInput struct {
	Position           types.Position
	Price              float64
	Indicators         indicator.Snapshot
	Stage              riskpolicy.Stage
	Policy             riskpolicy.Policy
	TotalEquity        float64
	ContractMultiplier float64
}

// Assessment 分析输出。RecommendedStop 为 0 表示不建议调整止损。
type Assessment struct {
	NetPnL          float64 `json:"net_pnl"`
	NetROI          float64 `json:"net_roi"` // 扣费后收益 / 保证金
	BreakEvenPrice  float64 `json:"break_even_price"`
	RecommendedStop float64 `json:"recommended_stop,omitempty"`
	RiskStage       string  `json:"risk_stage"`
	ActionHint      string  `json:"action_hint,omitempty"`
	AllowDCA        bool    `json:"allow_dca"`
	AllowPyramid    bool    `json:"allow_pyramid"`
}

// Analyze 对当前持仓做独立于模型的风险评估：
// 扣费净盈亏、保本价、盈亏分支下的止损建议与加仓许可。
// 所有止损建议在返回前都经过棘轮约束，只允许向有利方向移动。
func Analyze(in AnalyzeInput) Assessment {
	pos := in.Position
	if !pos.IsOpen() || in.Price <= 0 {
		return Assessment{RiskStage: StageNoPosition}
	}

	mult := in.ContractMultiplier
	if mult <= 0 {
		mult = 1
	}
	feeRate := in.Policy.FeeRate
	notional := pos.Size * mult * in.Price
	roundTripFee := notional * feeRate * 2

	out := Assessment{
		NetPnL:         pos.UnrealizedPnL - roundTripFee,
		BreakEvenPrice: breakEvenPrice(pos, feeRate),
	}
	if pos.Margin > 0 {
		out.NetROI = out.NetPnL / pos.Margin
	}

	if out.NetPnL <= 0 {
		analyzeLoss(in, &out)
	} else {
		analyzeProfit(in, &out)
	}

	if out.RecommendedStop > 0 {
		final, overridden := RatchetStop(out.RecommendedStop, pos.StopLossTrigger, in.Price, pos.IsLong(), in.Policy.StopBufferPct)
		out.RecommendedStop = final
		if overridden {
			out.RiskStage += ratchetNote
		}
	}
	return out
}

// breakEvenPrice 优先使用交易所给出的保本价；缺失时按往返手续费推导：
// long: entry×(1+fee)/(1−fee)，short 取倒数方向。
func breakEvenPrice(pos types.Position, feeRate float64) float64 {
	if pos.BreakEvenPrice > 0 {
		return pos.BreakEvenPrice
	}
	if pos.EntryPrice <= 0 {
		return 0
	}
	if pos.IsLong() {
		return pos.EntryPrice * (1 + feeRate) / (1 - feeRate)
	}
	return pos.EntryPrice * (1 - feeRate) / (1 + feeRate)
}

func analyzeLoss(in AnalyzeInput, out *Assessment) {
	pos := in.Position
	aligned := trendAligned(pos.IsLong(), in.Price, in.Indicators)
	drawdownPct := lossDrawdownPct(pos, in.Price)
	marginRatio := positionMarginRatio(pos, in.TotalEquity)

	if !aligned {
		out.RiskStage = StageLossBroken
		out.ActionHint = HintTightenStop
		// 趋势破坏：把止损收紧到"从当前价再亏 maxLoss/杠杆"的边界
		out.RecommendedStop = maxLossStop(in.Price, pos.Leverage, in.Policy.MaxLossFraction, pos.IsLong())
		return
	}

	out.RiskStage = StageLossAligned
	inBand := drawdownPct >= in.Policy.DCA.MinDrawdownPct && drawdownPct <= in.Policy.DCA.MaxDrawdownPct
	if in.Stage.AllowDCA && inBand && marginRatio < in.Stage.MaxPositionRatio {
		out.AllowDCA = true
		out.ActionHint = HintDCA
		return
	}
	out.ActionHint = HintHold
}

func analyzeProfit(in AnalyzeInput, out *Assessment) {
	pos := in.Position
	be := out.BreakEvenPrice
	entry := pos.EntryPrice
	if be <= 0 || entry <= 0 {
		out.RiskStage = StageProfitBuffer
		return
	}

	// 距保本价的盈利距离，占开仓价百分比
	var distPct float64
	if pos.IsLong() {
		distPct = (in.Price - be) / entry * 100
	} else {
		distPct = (be - in.Price) / entry * 100
	}

	ladder := in.Policy.Ladder
	switch {
	case distPct < ladder.BufferPct:
		// 贴着保本的缓冲区：避免手续费级别的波动来回拉扯止损
		out.RiskStage = StageProfitBuffer
	case distPct < ladder.BreakEvenPct:
		out.RiskStage = StageProfitLockBE
		out.RecommendedStop = be
	case distPct < ladder.PartialPct:
		out.RiskStage = StageProfitPartial
		out.RecommendedStop = lockStop(be, in.Price, ladder.PartialLockRatio, pos.IsLong())
	default:
		out.RiskStage = StageProfitDeep
		out.RecommendedStop = lockStop(be, in.Price, ladder.DeepLockRatio, pos.IsLong())
	}

	// 顺势加仓资格：波动带突破或动量+摆动指标共振，仓位与收益率达标
	marginRatio := positionMarginRatio(pos, in.TotalEquity)
	strongTrend := bandBreakout(pos.IsLong(), in.Price, in.Indicators) ||
		momentumAligned(pos.IsLong(), in.Indicators)
	roiPct := out.NetROI * 100
	if strongTrend && marginRatio < in.Stage.MaxPositionRatio && roiPct >= in.Policy.Pyramid.MinROIPct {
		out.AllowPyramid = true
		out.ActionHint = HintPyramid
	}
}

// lockStop 锁定保本价之外 ratio 比例的浮盈。
func lockStop(breakEven, price, ratio float64, long bool) float64 {
	if long {
		return breakEven + (price-breakEven)*ratio
	}
	return breakEven - (breakEven-price)*ratio
}

// maxLossStop 以"保证金最大亏损比例/杠杆"换算的价格边界作为止损。
func maxLossStop(price, leverage, maxLossFraction float64, long bool) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	pct := maxLossFraction / leverage
	if long {
		return price * (1 - pct)
	}
	return price * (1 + pct)
}

func lossDrawdownPct(pos types.Position, price float64) float64 {
	if pos.EntryPrice <= 0 {
		return 0
	}
	if pos.IsLong() {
		return (pos.EntryPrice - price) / pos.EntryPrice * 100
	}
	return (price - pos.EntryPrice) / pos.EntryPrice * 100
}

// positionMarginRatio 仓位保证金占总权益比例，用于档位仓位上限判断。
func positionMarginRatio(pos types.Position, totalEquity float64) float64 {
	if totalEquity <= 0 {
		return 1
	}
	return pos.Margin / totalEquity
}

// trendAligned 价格在均线有利一侧且动量方向一致。
func trendAligned(long bool, price float64, ind indicator.Snapshot) bool {
	if ind.SMA20 <= 0 {
		return false
	}
	if long {
		return price > ind.SMA20 && ind.MACD > 0
	}
	return price < ind.SMA20 && ind.MACD < 0
}

// bandBreakout 价格突破布林带外轨。
func bandBreakout(long bool, price float64, ind indicator.Snapshot) bool {
	if ind.BollMid <= 0 {
		return false
	}
	if long {
		return price > ind.BollUpper
	}
	return price < ind.BollLower
}

// momentumAligned MACD 与 RSI 共振。
func momentumAligned(long bool, ind indicator.Snapshot) bool {
	if long {
		return ind.MACD > 0 && ind.RSI14 > 55
	}
	return ind.MACD < 0 && ind.RSI14 < 45
}

// RatchetStop 对候选止损做两步约束：
// 1) 钳到距当前价至少 bufferPct% 的安全缓冲内，避免挂出即触发；
// 2) 与已记录止损比较，多头取 max、空头取 min，止损只许向持仓人有利方向移动。
// 第二个返回值表示任一步骤修改了候选值，调用方据此标注"系统钳制"。
func RatchetStop(candidate, currentStop, price float64, long bool, bufferPct float64) (float64, bool) {
	if candidate <= 0 {
		return currentStop, false
	}
	orig := candidate
	if price > 0 && bufferPct > 0 {
		if long {
			limit := relativePrice(price, -bufferPct/100, true)
			if decimalGT(candidate, limit) {
				candidate = limit
			}
		} else {
			limit := relativePrice(price, bufferPct/100, true)
			if decimalLT(candidate, limit) {
				candidate = limit
			}
		}
	}
	if currentStop > 0 {
		if long && decimalLT(candidate, currentStop) {
			candidate = currentStop
		}
		if !long && decimalGT(candidate, currentStop) {
			candidate = currentStop
		}
	}
	return candidate, candidate != orig
}

// RatchetViolated 判断候选止损是否相对已记录止损向不利方向移动。
// 用于 UPDATE_TPSL 的硬闸门：违反时整个动作应被拒绝而非静默钳制。
func RatchetViolated(candidate, currentStop float64, long bool) bool {
	if candidate <= 0 || currentStop <= 0 {
		return false
	}
	if long {
		return decimalLT(candidate, currentStop)
	}
	return decimalGT(candidate, currentStop)
}

// DescribeAssessment 生成提示词用的风险摘要。
func DescribeAssessment(a Assessment) string {
	if a.RiskStage == StageNoPosition {
		return "当前空仓。"
	}
	s := fmt.Sprintf("风险阶段：%s；扣费净盈亏 %.2f USDT（净收益率 %+.2f%%）；保本价 %.2f",
		a.RiskStage, a.NetPnL, a.NetROI*100, a.BreakEvenPrice)
	if a.RecommendedStop > 0 {
		s += fmt.Sprintf("；建议止损 %.2f", a.RecommendedStop)
	}
	if a.AllowDCA {
		s += "；满足亏损加仓条件"
	}
	if a.AllowPyramid {
		s += "；满足顺势加仓条件"
	}
	return s + "。"
}
