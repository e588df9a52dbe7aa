// Package decision 实现决策管线的出口：解析模型原始输出、
// 对照硬性风控规则复核改写、组装最终可执行决策对象。
package decision

import (
	"strings"
	"time"

	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/strategy"
	"github.com/jialazhu/okx1204/internal/types"
)

// Action 决策动作的封闭集合。模型给出的任何无法识别的动作一律归为 HOLD，
// 不允许未知动作穿透到执行层。
type Action string

const (
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionHold       Action = "HOLD"
	ActionClose      Action = "CLOSE"
	ActionUpdateTPSL Action = "UPDATE_TPSL"
)

// ParseAction 在模型边界做一次性归一化：大小写、分隔符、常见同义词。
func ParseAction(raw string) Action {
	a := strings.ToUpper(strings.TrimSpace(raw))
	a = strings.NewReplacer(" ", "_", "-", "_").Replace(a)
	switch a {
	case "BUY", "LONG", "OPEN_LONG", "GO_LONG", "BUY_LONG", "ENTER_LONG":
		return ActionBuy
	case "SELL", "SHORT", "OPEN_SHORT", "GO_SHORT", "SELL_SHORT", "ENTER_SHORT":
		return ActionSell
	case "CLOSE", "CLOSE_POSITION", "CLOSE_LONG", "CLOSE_SHORT", "EXIT", "FLAT":
		return ActionClose
	case "UPDATE_TPSL", "UPDATE_TP_SL", "UPDATE_STOP", "ADJUST_STOP", "ADJUST_STOP_LOSS", "MOVE_STOP", "MOVE_STOP_LOSS":
		return ActionUpdateTPSL
	case "HOLD", "WAIT", "STAY", "NEUTRAL":
		return ActionHold
	default:
		return ActionHold
	}
}

// IsEntry 是否为开仓方向动作。
func (a Action) IsEntry() bool {
	return a == ActionBuy || a == ActionSell
}

// RawModelDecision 模型返回的原始决策。不可信输入：
// 任何数值字段都可能缺失或越界，缺失的数值用负哨兵表示。
type RawModelDecision struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"` // <0 表示未给出
	Size       float64 `json:"size"`       // <=0 表示未给出
	Leverage   float64 `json:"leverage"`   // <=0 表示未给出
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Reasoning  string  `json:"reasoning"`
}

// Context 复核所需的全部环境快照，在单个分析周期内不变。
type Context struct {
	Instrument         string
	Price              float64
	Balance            types.AccountBalance
	Position           types.Position
	Stage              riskpolicy.Stage
	Policy             riskpolicy.Policy
	Assessment         strategy.Assessment
	ContractMultiplier float64
}

// FinalDecision 复核后的最终决策，唯一允许进入执行层的对象。
// 创建后不再修改，按周期追加进有界历史。
type FinalDecision struct {
	ID         string    `json:"id"`
	Instrument string    `json:"instrument"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"`
	Leverage   float64   `json:"leverage"`
	Margin     float64   `json:"margin"`
	Notional   float64   `json:"notional"`
	Size       float64   `json:"size"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"` // 模型叙述，原样保留
	Notes      []string  `json:"notes,omitempty"`     // 系统修正说明
	CreatedAt  time.Time `json:"created_at"`
}

// Narrative 模型叙述加系统修正的展示文本。
func (d FinalDecision) Narrative() string {
	if len(d.Notes) == 0 {
		return d.Reasoning
	}
	parts := make([]string, 0, len(d.Notes)+1)
	if strings.TrimSpace(d.Reasoning) != "" {
		parts = append(parts, d.Reasoning)
	}
	for _, n := range d.Notes {
		parts = append(parts, "［系统修正］"+n)
	}
	return strings.Join(parts, "\n")
}
