package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/types"
)

func testContext(availEquity, price float64) Context {
	policy := riskpolicy.Default()
	return Context{
		Instrument:         "ETH-USDT-SWAP",
		Price:              price,
		Balance:            types.AccountBalance{TotalEquity: availEquity, AvailableEquity: availEquity},
		Stage:              policy.StageFor(availEquity),
		Policy:             policy,
		ContractMultiplier: 1,
	}
}

func TestReconcileBuyHighConfidence(t *testing.T) {
	// 权益 15，置信度 80%，杠杆 20：
	// 保证金 = 15×0.8×0.8 = 9.6（上限 13.5），名义价值 192 ≥ 100 下限
	ctx := testContext(15, 3000)
	raw := RawModelDecision{Action: "BUY", Confidence: 80, Leverage: 20}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionBuy, out.Action)
	assert.InDelta(t, 9.6, out.Margin, 1e-9)
	assert.InDelta(t, 192.0, out.Notional, 1e-9)
	assert.Equal(t, 20.0, out.Leverage)
	assert.Equal(t, 0.06, out.Size) // 192/3000 向下取整到 2 位小数
}

func TestReconcileLowConfidenceBelowFloorHolds(t *testing.T) {
	// 置信度 10%：名义价值 24 < 100 下限，且 10 < 40 补足阈值
	ctx := testContext(15, 3000)
	raw := RawModelDecision{Action: "BUY", Confidence: 10, Leverage: 20}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionHold, out.Action)
	assert.Zero(t, out.Size)
	require.NotEmpty(t, out.Notes)
	assert.Contains(t, out.Notes[0], "低于下限")
}

func TestReconcileFloorBoostWithAdequateConfidence(t *testing.T) {
	// 置信度 50%：名义价值 15×0.8×0.5×20 = 120 ≥ 100，不需补足。
	// 换小权益让名义价值落在下限以下但可补足：权益 10 → 保证金 4，名义 80 < 100，
	// 补足需保证金 5 ≤ 上限 9，置信度 50 ≥ 40 → 上调至下限
	ctx := testContext(10, 3000)
	raw := RawModelDecision{Action: "BUY", Confidence: 50, Leverage: 20}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionBuy, out.Action)
	assert.InDelta(t, 5.0, out.Margin, 1e-9)
	assert.InDelta(t, 100.0, out.Notional, 1e-9)
	require.NotEmpty(t, out.Notes)
	assert.Contains(t, out.Notes[0], "上调")
}

func TestReconcileMarginCappedBySafetyReserve(t *testing.T) {
	// 置信度 100% 风险系数 0.8 → 原始保证金 = 权益 80%；仍低于 90% 预留上限。
	// 风险系数更高的情形用自定义档位覆盖验证封顶。
	ctx := testContext(100, 3000)
	ctx.Stage.RiskFactor = 1.0
	raw := RawModelDecision{Action: "BUY", Confidence: 100, Leverage: 10}

	out := Reconcile(raw, ctx)
	assert.InDelta(t, 90.0, out.Margin, 1e-9) // 100×1.0×1.0 封顶到 100×0.90
}

func TestReconcileLeverageFallsBackToStage(t *testing.T) {
	ctx := testContext(50, 3000)
	raw := RawModelDecision{Action: "BUY", Confidence: 80} // 未给杠杆

	out := Reconcile(raw, ctx)
	assert.Equal(t, ctx.Stage.Leverage, out.Leverage)
	assert.Positive(t, out.Leverage)
}

func TestReconcileConfidenceDefaults(t *testing.T) {
	ctx := testContext(50, 3000)
	out := Reconcile(RawModelDecision{Action: "HOLD", Confidence: -1}, ctx)
	assert.Equal(t, 50.0, out.Confidence)

	out = Reconcile(RawModelDecision{Action: "HOLD", Confidence: 250}, ctx)
	assert.Equal(t, 100.0, out.Confidence)
}

func TestReconcilePrefersSmallerModelSize(t *testing.T) {
	ctx := testContext(15, 3000)
	raw := RawModelDecision{Action: "BUY", Confidence: 80, Leverage: 20, Size: 0.02}

	out := Reconcile(raw, ctx)
	assert.Equal(t, 0.02, out.Size, "模型要求的更小仓位应被采纳")

	// 反向：模型要求超过风控上限的仓位被忽略
	raw.Size = 5
	out = Reconcile(raw, ctx)
	assert.Equal(t, 0.06, out.Size)
}

func TestReconcileTinySizeCollapsesToHold(t *testing.T) {
	// 名义 192 / 价格 20000 = 0.0096 < 0.01 最小单位
	ctx := testContext(15, 20000)
	raw := RawModelDecision{Action: "BUY", Confidence: 80, Leverage: 20}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionHold, out.Action)
	assert.Zero(t, out.Size)
}

func TestReconcileStopClampedToMaxLossBoundary(t *testing.T) {
	// 20x 杠杆下最大容忍偏离 = 0.20/20 = 1%，多头边界 2970
	ctx := testContext(15, 3000)
	raw := RawModelDecision{Action: "BUY", Confidence: 80, Leverage: 20, StopLoss: 2900}

	out := Reconcile(raw, ctx)
	assert.InDelta(t, 2970.0, out.StopLoss, 1e-9)
	require.NotEmpty(t, out.Notes)
	assert.Contains(t, out.Notes[len(out.Notes)-1], "钳制")

	// 边界之内的止损原样保留
	raw.StopLoss = 2980
	out = Reconcile(raw, ctx)
	assert.Equal(t, 2980.0, out.StopLoss)
	assert.Empty(t, out.Notes)
}

func TestReconcileShortStopClamp(t *testing.T) {
	ctx := testContext(15, 3000)
	raw := RawModelDecision{Action: "SELL", Confidence: 80, Leverage: 20, StopLoss: 3100}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionSell, out.Action)
	assert.InDelta(t, 3030.0, out.StopLoss, 1e-9) // 3000×(1+0.01)
}

func TestReconcileUpdateTPSLRatchetGate(t *testing.T) {
	ctx := testContext(50, 3100)
	ctx.Position = types.Position{
		Instrument: "ETH-USDT-SWAP", Side: types.SideLong, Size: 1,
		EntryPrice: 3000, StopLossTrigger: 3000,
	}
	raw := RawModelDecision{Action: "UPDATE_TPSL", Confidence: 70, StopLoss: 2950}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionHold, out.Action, "向不利方向移动止损必须整单拒绝")
	assert.Zero(t, out.StopLoss, "被拒绝后不得携带新止损")
	require.NotEmpty(t, out.Notes)
	assert.Contains(t, out.Notes[0], "被拒绝")
}

func TestReconcileUpdateTPSLImprovingStopPasses(t *testing.T) {
	ctx := testContext(50, 3100)
	ctx.Position = types.Position{
		Instrument: "ETH-USDT-SWAP", Side: types.SideLong, Size: 1,
		EntryPrice: 3000, StopLossTrigger: 3000,
	}
	raw := RawModelDecision{Action: "UPDATE_TPSL", Confidence: 70, StopLoss: 3050, TakeProfit: 3300}

	out := Reconcile(raw, ctx)
	assert.Equal(t, ActionUpdateTPSL, out.Action)
	assert.Equal(t, 3050.0, out.StopLoss)
	assert.Equal(t, 3300.0, out.TakeProfit)
	assert.Zero(t, out.Size)
}

func TestReconcileCloseWithoutPositionHolds(t *testing.T) {
	ctx := testContext(50, 3100)
	out := Reconcile(RawModelDecision{Action: "CLOSE", Confidence: 60}, ctx)
	assert.Equal(t, ActionHold, out.Action)

	out = Reconcile(RawModelDecision{Action: "UPDATE_TPSL", Confidence: 60, StopLoss: 3050}, ctx)
	assert.Equal(t, ActionHold, out.Action)
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := testContext(15, 3000)
	raw := RawModelDecision{Action: "buy", Confidence: 80, Leverage: 20, StopLoss: 2900}

	first := Reconcile(raw, ctx)
	second := Reconcile(raw, ctx)
	assert.Equal(t, first, second)
}

func TestReconcileNotionalInvariant(t *testing.T) {
	// 任何复核出的开仓：size×mult×price×... 名义价值不低于下限，否则必为 HOLD
	prices := []float64{100, 1500, 3000, 20000, 65000}
	confs := []float64{5, 25, 40, 60, 95}
	for _, p := range prices {
		for _, c := range confs {
			ctx := testContext(15, p)
			out := Reconcile(RawModelDecision{Action: "BUY", Confidence: c, Leverage: 20}, ctx)
			if out.Action == ActionHold {
				assert.Zero(t, out.Size)
				continue
			}
			assert.GreaterOrEqual(t, out.Notional, ctx.Policy.MinNotionalFirst)
			assert.GreaterOrEqual(t, out.Size, 0.01)
			assert.Positive(t, out.Leverage)
		}
	}
}

func TestSafeHold(t *testing.T) {
	out := SafeHold("ETH-USDT-SWAP", "模型响应解析失败: unexpected token")
	assert.Equal(t, ActionHold, out.Action)
	assert.Zero(t, out.Size)
	assert.Zero(t, out.Leverage)
	assert.Contains(t, out.Narrative(), "解析失败")
}
