package types

import "time"

// Side 持仓方向。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideNet   Side = "net"
)

// Position 交易所返回的持仓快照。
// BreakEvenPrice/StopLossTrigger/TakeProfitTrigger 为 0 表示"未设置"，不是真实价格。
type Position struct {
	Instrument         string    `json:"instrument"`
	Side               Side      `json:"side"`
	Size               float64   `json:"size"` // 合约张数，>0 即持仓中
	EntryPrice         float64   `json:"entry_price"`
	BreakEvenPrice     float64   `json:"break_even_price,omitempty"`
	UnrealizedPnL      float64   `json:"unrealized_pnl"`
	UnrealizedPnLRatio float64   `json:"unrealized_pnl_ratio"`
	MarginMode         string    `json:"margin_mode"`
	Margin             float64   `json:"margin"`
	Leverage           float64   `json:"leverage"`
	LiquidationPrice   float64   `json:"liquidation_price,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	StopLossTrigger    float64   `json:"stop_loss_trigger,omitempty"`
	TakeProfitTrigger  float64   `json:"take_profit_trigger,omitempty"`
}

// IsOpen 判断是否存在有效持仓。
func (p Position) IsOpen() bool {
	return p.Size > 0
}

// IsLong 按方向给出价格距离计算的符号约定。
func (p Position) IsLong() bool {
	return p.Side == SideLong
}

// AccountBalance 账户权益快照，计价货币为 USDT。
type AccountBalance struct {
	TotalEquity     float64   `json:"total_equity"`
	AvailableEquity float64   `json:"available_equity"`
	UpdatedAt       time.Time `json:"updated_at"`
}
