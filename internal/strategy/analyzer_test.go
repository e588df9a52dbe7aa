package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jialazhu/okx1204/internal/analysis/indicator"
	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/types"
)

func basePolicy() riskpolicy.Policy {
	return riskpolicy.Default()
}

func longPosition(entry, size, margin, leverage float64) types.Position {
	return types.Position{
		Instrument: "ETH-USDT-SWAP",
		Side:       types.SideLong,
		Size:       size,
		EntryPrice: entry,
		Margin:     margin,
		Leverage:   leverage,
	}
}

func bullishSnapshot(price float64) indicator.Snapshot {
	return indicator.Snapshot{
		Price: price,
		SMA20: price * 0.97,
		RSI14: 60,
		MACD:  1.5, MACDSignal: 1.2, MACDHist: 0.3,
		BollUpper: price * 1.05, BollMid: price * 0.98, BollLower: price * 0.91,
	}
}

func TestAnalyzeNoPosition(t *testing.T) {
	out := Analyze(AnalyzeInput{Price: 3000, Policy: basePolicy()})
	assert.Equal(t, StageNoPosition, out.RiskStage)
	assert.Zero(t, out.RecommendedStop)
}

func TestBreakEvenPreferExchangeValue(t *testing.T) {
	pos := longPosition(3000, 1, 150, 20)
	pos.BreakEvenPrice = 3003.5
	assert.Equal(t, 3003.5, breakEvenPrice(pos, 0.0005))
}

func TestBreakEvenDerivedFromFees(t *testing.T) {
	pos := longPosition(3000, 1, 150, 20)
	be := breakEvenPrice(pos, 0.0005)
	// long: entry×(1+fee)/(1−fee) > entry
	assert.Greater(t, be, 3000.0)
	assert.InDelta(t, 3000*(1.0005)/(0.9995), be, 1e-9)

	short := pos
	short.Side = types.SideShort
	beShort := breakEvenPrice(short, 0.0005)
	assert.Less(t, beShort, 3000.0)
}

func TestNetPnLSubtractsRoundTripFees(t *testing.T) {
	pos := longPosition(3000, 1, 150, 20)
	pos.UnrealizedPnL = 1.0
	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              3001,
		Indicators:         bullishSnapshot(3001),
		Stage:              basePolicy().StageFor(15),
		Policy:             basePolicy(),
		TotalEquity:        15,
		ContractMultiplier: 1,
	})
	fee := 1 * 1.0 * 3001 * 0.0005 * 2
	assert.InDelta(t, 1.0-fee, out.NetPnL, 1e-9)
	// 扣费后为亏损，应进入亏损分支
	assert.Contains(t, out.RiskStage, "亏损风控")
}

func TestLossTrendAlignedInDCABand(t *testing.T) {
	policy := basePolicy()
	stage := policy.Stages[1] // 允许 DCA
	pos := longPosition(3000, 1, 30, 10)
	pos.UnrealizedPnL = -90
	price := 3000 * (1 - 0.03) // 回撤 3%，位于 [1.5, 8] 区间

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         bullishSnapshot(price),
		Stage:              stage,
		Policy:             policy,
		TotalEquity:        100,
		ContractMultiplier: 1,
	})
	assert.Equal(t, StageLossAligned, out.RiskStage)
	assert.True(t, out.AllowDCA)
	assert.Equal(t, HintDCA, out.ActionHint)
	assert.Zero(t, out.RecommendedStop, "加仓建议时不动止损")
}

func TestLossTrendAlignedOutsideBandHolds(t *testing.T) {
	policy := basePolicy()
	stage := policy.Stages[1]
	pos := longPosition(3000, 1, 30, 10)
	pos.UnrealizedPnL = -5
	price := 3000 * (1 - 0.005) // 回撤 0.5% < 1.5%

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         bullishSnapshot(price),
		Stage:              stage,
		Policy:             policy,
		TotalEquity:        100,
		ContractMultiplier: 1,
	})
	assert.Equal(t, StageLossAligned, out.RiskStage)
	assert.False(t, out.AllowDCA)
	assert.Equal(t, HintHold, out.ActionHint)
}

func TestLossTrendBrokenTightensStop(t *testing.T) {
	policy := basePolicy()
	stage := policy.Stages[0]
	pos := longPosition(3000, 1, 150, 20)
	pos.UnrealizedPnL = -60
	price := 2940.0
	bearish := indicator.Snapshot{Price: price, SMA20: price * 1.02, MACD: -2}

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         bearish,
		Stage:              stage,
		Policy:             policy,
		TotalEquity:        15,
		ContractMultiplier: 1,
	})
	assert.Contains(t, out.RiskStage, StageLossBroken)
	assert.False(t, out.AllowDCA)
	assert.Equal(t, HintTightenStop, out.ActionHint)
	require.NotZero(t, out.RecommendedStop)
	assert.Less(t, out.RecommendedStop, price)
}

func TestProfitBufferZoneNoStopChange(t *testing.T) {
	policy := basePolicy()
	pos := longPosition(3000, 1, 150, 20)
	pos.UnrealizedPnL = 8
	price := 3007.0 // 距保本约 0.1%，在 0.3% 缓冲内

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         bullishSnapshot(price),
		Stage:              policy.Stages[0],
		Policy:             policy,
		TotalEquity:        15,
		ContractMultiplier: 1,
	})
	assert.Equal(t, StageProfitBuffer, out.RiskStage)
	assert.Zero(t, out.RecommendedStop)
}

func TestProfitDeepZoneLocks75Percent(t *testing.T) {
	policy := basePolicy()
	pos := longPosition(3000, 1, 150, 20)
	pos.UnrealizedPnL = 200
	price := 3200.0 // 距保本 >2%，深度盈利区

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         indicator.Snapshot{Price: price, SMA20: 3100, MACD: 1, RSI14: 50, BollMid: 3100, BollUpper: 3300, BollLower: 2900},
		Stage:              policy.Stages[0],
		Policy:             policy,
		TotalEquity:        160,
		ContractMultiplier: 1,
	})
	assert.Contains(t, out.RiskStage, StageProfitDeep)
	require.NotZero(t, out.RecommendedStop)
	be := out.BreakEvenPrice
	expected := be + (price-be)*policy.Ladder.DeepLockRatio
	assert.InDelta(t, expected, out.RecommendedStop, 1e-6)
	assert.Greater(t, out.RecommendedStop, be)
	assert.Less(t, out.RecommendedStop, price)
}

func TestProfitStopRatchetsAgainstExistingStop(t *testing.T) {
	policy := basePolicy()
	pos := longPosition(3000, 1, 150, 20)
	pos.UnrealizedPnL = 200
	pos.StopLossTrigger = 3195 // 已有更紧的止损
	price := 3200.0

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         indicator.Snapshot{Price: price, SMA20: 3100, MACD: 1, RSI14: 50, BollMid: 3100, BollUpper: 3300, BollLower: 2900},
		Stage:              policy.Stages[0],
		Policy:             policy,
		TotalEquity:        160,
		ContractMultiplier: 1,
	})
	// 候选值低于已有止损，被棘轮覆盖并标注
	assert.Equal(t, 3195.0, out.RecommendedStop)
	assert.Contains(t, out.RiskStage, "系统钳制")
}

func TestRatchetStopLongNeverWorseThanCurrent(t *testing.T) {
	final, overridden := RatchetStop(2900, 3000, 3200, true, 0.2)
	assert.Equal(t, 3000.0, final)
	assert.True(t, overridden)

	final, overridden = RatchetStop(3100, 3000, 3200, true, 0.2)
	assert.Equal(t, 3100.0, final)
	assert.False(t, overridden)
}

func TestRatchetStopShortNeverWorseThanCurrent(t *testing.T) {
	final, overridden := RatchetStop(3100, 3000, 2800, false, 0.2)
	assert.Equal(t, 3000.0, final)
	assert.True(t, overridden)

	final, overridden = RatchetStop(2900, 3000, 2800, false, 0.2)
	assert.Equal(t, 2900.0, final)
	assert.False(t, overridden)
}

func TestRatchetStopClampsToSafetyBuffer(t *testing.T) {
	// 候选止损几乎贴着现价，先被钳到缓冲边界，同样要标注修改
	final, overridden := RatchetStop(3199.9, 0, 3200, true, 0.2)
	assert.InDelta(t, 3200*(1-0.002), final, 1e-6)
	assert.True(t, overridden)

	final, overridden = RatchetStop(2800.1, 0, 2800, false, 0.2)
	assert.InDelta(t, 2800*(1+0.002), final, 1e-6)
	assert.True(t, overridden)

	// 缓冲之外的候选值原样通过
	final, overridden = RatchetStop(3100, 0, 3200, true, 0.2)
	assert.Equal(t, 3100.0, final)
	assert.False(t, overridden)
}

func TestRatchetViolated(t *testing.T) {
	assert.True(t, RatchetViolated(2950, 3000, true))
	assert.False(t, RatchetViolated(3050, 3000, true))
	assert.True(t, RatchetViolated(3050, 3000, false))
	assert.False(t, RatchetViolated(2950, 3000, false))
	assert.False(t, RatchetViolated(2950, 0, true), "无已有止损时不构成违反")
}

func TestPyramidEligibility(t *testing.T) {
	policy := basePolicy()
	stage := policy.Stages[1]
	pos := longPosition(3000, 1, 30, 10)
	pos.UnrealizedPnL = 210 // ROI 远超阈值
	price := 3220.0
	breakout := indicator.Snapshot{Price: price, SMA20: 3100, MACD: 2, RSI14: 62, BollMid: 3100, BollUpper: 3200, BollLower: 3000}

	out := Analyze(AnalyzeInput{
		Position:           pos,
		Price:              price,
		Indicators:         breakout,
		Stage:              stage,
		Policy:             policy,
		TotalEquity:        100,
		ContractMultiplier: 1,
	})
	assert.True(t, out.AllowPyramid)
	assert.Equal(t, HintPyramid, out.ActionHint)
}

func TestClassifyStage(t *testing.T) {
	policy := basePolicy()
	assert.Equal(t, "保守起步", ClassifyStage(policy, 10).Name)
	assert.Equal(t, "稳健成长", ClassifyStage(policy, 50).Name)
	assert.Equal(t, "资金防御", ClassifyStage(policy, 500).Name)
}
