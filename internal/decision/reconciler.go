package decision

import (
	"fmt"
	"math"

	"github.com/jialazhu/okx1204/internal/strategy"
)

// 中文说明：
// 复核器把模型的原始提案改写为执行安全的决策，是整个系统唯一的
// 资金安全闸门。所有步骤确定有序、无副作用：同样的输入必得同样的输出。
//
// 步骤（顺序不可调换）：
//  1. 归一化动作 / 置信度 / 杠杆
//  2. 目标保证金 = 可用权益 × 风险系数 × 置信度，封顶安全预留
//  3. 名义价值 = 保证金 × 杠杆
//  4. 最小名义价值下限（首仓与加仓下限独立），置信度足够时上调保证金补足，
//     否则降级 HOLD
//  5. 换算合约张数，与模型提案取小，2 位小数向下取整，低于 0.01 降级 HOLD
//  6. 止损边界钳制：单笔最大亏损比例 / 杠杆
//  7. 非开仓动作张数归零
//  8. UPDATE_TPSL 的棘轮硬闸门：向不利方向移动时整单拒绝为 HOLD

const minTradableSize = 0.01

// Reconcile 对模型提案做确定性复核改写。纯函数，幂等。
func Reconcile(raw RawModelDecision, ctx Context) FinalDecision {
	out := FinalDecision{
		Instrument: ctx.Instrument,
		Reasoning:  raw.Reasoning,
	}

	// 步骤 1：归一化
	out.Action = ParseAction(raw.Action)
	out.Confidence = normalizeConfidence(raw.Confidence)
	out.Leverage = raw.Leverage
	if out.Leverage <= 0 || math.IsNaN(out.Leverage) || math.IsInf(out.Leverage, 0) {
		out.Leverage = ctx.Stage.Leverage
	}

	// 步骤 2：目标保证金与安全预留封顶
	avail := ctx.Balance.AvailableEquity
	marginCap := avail * ctx.Policy.SafetyReserve
	out.Margin = avail * ctx.Stage.RiskFactor * out.Confidence / 100
	if out.Margin > marginCap {
		out.Margin = marginCap
	}

	// 步骤 3：名义价值
	out.Notional = out.Margin * out.Leverage

	if out.Action.IsEntry() {
		reconcileEntry(raw, ctx, marginCap, &out)
	} else {
		reconcileNonEntry(raw, ctx, &out)
	}
	return out
}

func reconcileEntry(raw RawModelDecision, ctx Context, marginCap float64, out *FinalDecision) {
	policy := ctx.Policy

	// 步骤 4：最小名义价值下限
	floor := policy.MinNotionalFirst
	if ctx.Position.IsOpen() {
		floor = policy.MinNotionalAdd
	}
	if out.Notional < floor {
		needMargin := floor / out.Leverage
		if out.Confidence >= policy.ConfidenceBoostFloor && needMargin <= marginCap {
			out.Margin = needMargin
			out.Notional = floor
			out.Notes = append(out.Notes,
				fmt.Sprintf("名义价值低于下限 %.0f USDT，保证金上调至 %.2f 补足", floor, needMargin))
		} else {
			demoteToHold(out, fmt.Sprintf("名义价值 %.2f 低于下限 %.0f 且置信度 %.0f%% 不足以补足", out.Notional, floor, out.Confidence))
			return
		}
	}

	// 步骤 5：张数换算
	if ctx.Price <= 0 {
		demoteToHold(out, "缺少有效现价，无法换算张数")
		return
	}
	mult := ctx.ContractMultiplier
	if mult <= 0 {
		mult = 1
	}
	size := out.Notional / (mult * ctx.Price)
	if raw.Size > 0 && raw.Size < size {
		// 模型主动要求更小仓位时尊重它，反向则忽略
		size = raw.Size
		out.Notes = append(out.Notes, fmt.Sprintf("采用模型给出的更小张数 %.2f", raw.Size))
	}
	size = math.Floor(size*100) / 100
	if size < minTradableSize {
		demoteToHold(out, fmt.Sprintf("换算张数 %.4f 低于最小可交易单位 %.2f", size, minTradableSize))
		return
	}
	out.Size = size

	// 步骤 6：止损边界钳制。新开仓不适用棘轮，只校验最大亏损边界。
	long := out.Action == ActionBuy
	if raw.StopLoss > 0 {
		maxDev := policy.MaxLossFraction / out.Leverage
		if long {
			boundary := ctx.Price * (1 - maxDev)
			if raw.StopLoss < boundary {
				out.StopLoss = boundary
				out.Notes = append(out.Notes,
					fmt.Sprintf("止损 %.2f 超出最大亏损边界，钳制到 %.2f", raw.StopLoss, boundary))
			} else {
				out.StopLoss = raw.StopLoss
			}
		} else {
			boundary := ctx.Price * (1 + maxDev)
			if raw.StopLoss > boundary {
				out.StopLoss = boundary
				out.Notes = append(out.Notes,
					fmt.Sprintf("止损 %.2f 超出最大亏损边界，钳制到 %.2f", raw.StopLoss, boundary))
			} else {
				out.StopLoss = raw.StopLoss
			}
		}
	}
	if raw.TakeProfit > 0 {
		out.TakeProfit = raw.TakeProfit
	}
}

func reconcileNonEntry(raw RawModelDecision, ctx Context, out *FinalDecision) {
	// 步骤 7：非开仓动作不携带仓位规模，杠杆保留用于展示口径
	out.Size = 0
	out.Margin = 0
	out.Notional = 0

	switch out.Action {
	case ActionClose:
		if !ctx.Position.IsOpen() {
			demoteToHold(out, "无持仓，平仓动作降级为 HOLD")
		}
	case ActionUpdateTPSL:
		if !ctx.Position.IsOpen() {
			demoteToHold(out, "无持仓，TP/SL 更新降级为 HOLD")
			return
		}
		// 步骤 8：棘轮硬闸门。被拒绝时整单作废而非静默钳制，
		// 已记录的止损保持权威。
		if raw.StopLoss > 0 &&
			strategy.RatchetViolated(raw.StopLoss, ctx.Position.StopLossTrigger, ctx.Position.IsLong()) {
			demoteToHold(out, fmt.Sprintf("新止损 %.2f 相对已有止损 %.2f 向不利方向移动，更新被拒绝",
				raw.StopLoss, ctx.Position.StopLossTrigger))
			return
		}
		if raw.StopLoss > 0 {
			out.StopLoss = raw.StopLoss
		}
		if raw.TakeProfit > 0 {
			out.TakeProfit = raw.TakeProfit
		}
		if out.StopLoss <= 0 && out.TakeProfit <= 0 {
			demoteToHold(out, "TP/SL 更新未给出任何有效价格")
		}
	}
}

func demoteToHold(out *FinalDecision, note string) {
	out.Action = ActionHold
	out.Size = 0
	out.Margin = 0
	out.Notional = 0
	out.StopLoss = 0
	out.TakeProfit = 0
	out.Notes = append(out.Notes, note)
}

// normalizeConfidence 缺失（负哨兵）默认 50，越界收敛到 [0,100]。
func normalizeConfidence(c float64) float64 {
	if c < 0 || math.IsNaN(c) {
		return 50
	}
	if c > 100 {
		return 100
	}
	return c
}

// SafeHold 上游获取或解析失败时的兜底决策：零仓位、零杠杆，
// 携带错误叙述，保证解析失败永远不会转化为下单。
func SafeHold(instrument, narrative string) FinalDecision {
	return FinalDecision{
		Instrument: instrument,
		Action:     ActionHold,
		Confidence: 0,
		Notes:      []string{narrative},
	}
}
