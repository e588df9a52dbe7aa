package trader

import (
	"fmt"
	"strings"

	"github.com/jialazhu/okx1204/internal/strategy"
)

// 中文说明：
// 提示词分两段：system 固定描述角色、动作集合与输出格式；
// user 携带本周期的行情、账户、持仓与风控上下文。
// 输出格式要求单个 JSON 对象，动作集合与复核器的封闭集合一致。

const systemPrompt = `你是一个加密货币永续合约交易助手，负责对单一合约给出交易决策。
你会收到行情快照、技术指标、账户与持仓状态，以及系统的独立风险评估。

必须以单个 JSON 对象回复，不要附加任何其他文本：
{
  "action": "BUY | SELL | HOLD | CLOSE | UPDATE_TPSL",
  "confidence": 0-100 的整数,
  "leverage": 建议杠杆倍数,
  "stop_loss": 止损触发价,
  "take_profit": 止盈触发价,
  "reasoning": "一句话中文理由"
}

规则：
- 无把握时选择 HOLD。
- 止损只允许向持仓有利方向移动，向不利方向的 UPDATE_TPSL 会被系统拒绝。
- 你给出的仓位与止损只是提案，系统会按硬性风控规则复核改写。`

// BuildUserPrompt 组装本周期的上下文提示词。
func BuildUserPrompt(snap Snapshot, bar string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("## 合约 %s\n", snap.Instrument))
	b.WriteString(fmt.Sprintf("最新价 %.2f，24h 开盘 %.2f，24h 成交量 %.2f\n\n",
		snap.Ticker.Last, snap.Ticker.Open24h, snap.Ticker.Volume24h))

	b.WriteString("## K 线摘要\n")
	b.WriteString(snap.Candles.Snapshot(bar))
	b.WriteString("\n\n## 技术指标\n")
	ind := snap.Indicators
	b.WriteString(fmt.Sprintf("SMA20=%.2f EMA20=%.2f EMA50=%.2f RSI14=%.1f\n", ind.SMA20, ind.EMA20, ind.EMA50, ind.RSI14))
	b.WriteString(fmt.Sprintf("MACD=%.4f Signal=%.4f Hist=%.4f\n", ind.MACD, ind.MACDSignal, ind.MACDHist))
	b.WriteString(fmt.Sprintf("BOLL 上=%.2f 中=%.2f 下=%.2f\n", ind.BollUpper, ind.BollMid, ind.BollLower))
	b.WriteString(fmt.Sprintf("KDJ K=%.1f D=%.1f J=%.1f\n", ind.K, ind.D, ind.J))
	if snap.Report.Count > 0 {
		b.WriteString(fmt.Sprintf("ATR=%.2f，辅助指标: %s\n", snap.Report.ATR, snap.Report.Describe()))
	}

	b.WriteString("\n## 账户\n")
	b.WriteString(fmt.Sprintf("总权益 %.2f USDT，可用 %.2f USDT\n",
		snap.Balance.TotalEquity, snap.Balance.AvailableEquity))
	b.WriteString(strategy.StageNarrative(snap.Stage))

	b.WriteString("\n\n## 持仓\n")
	if snap.Position.IsOpen() {
		p := snap.Position
		b.WriteString(fmt.Sprintf("%s %.2f 张 @ %.2f，杠杆 %.0fx，未实现盈亏 %.2f USDT\n",
			p.Side, p.Size, p.EntryPrice, p.Leverage, p.UnrealizedPnL))
		if p.StopLossTrigger > 0 {
			b.WriteString(fmt.Sprintf("当前止损 %.2f", p.StopLossTrigger))
		}
		if p.TakeProfitTrigger > 0 {
			b.WriteString(fmt.Sprintf("，当前止盈 %.2f", p.TakeProfitTrigger))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("当前空仓\n")
	}

	b.WriteString("\n## 系统风险评估\n")
	b.WriteString(strategy.DescribeAssessment(snap.Assessment))
	b.WriteString("\n\n请给出本周期的决策 JSON。")
	return b.String()
}
