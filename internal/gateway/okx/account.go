package okx

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jialazhu/okx1204/internal/logger"
	"github.com/jialazhu/okx1204/internal/types"
)

// Balance 拉取账户权益（USDT 计价）。
func (c *Client) Balance(ctx context.Context) (types.AccountBalance, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance?ccy=USDT", "")
	if err != nil {
		return types.AccountBalance{}, err
	}
	arr := data.Array()
	if len(arr) == 0 {
		return types.AccountBalance{}, nil
	}
	row := arr[0]
	bal := types.AccountBalance{
		TotalEquity: row.Get("totalEq").Float(),
		UpdatedAt:   time.UnixMilli(row.Get("uTime").Int()),
	}
	// availEq 挂在币种明细下
	row.Get("details").ForEach(func(_, d gjson.Result) bool {
		if d.Get("ccy").String() == "USDT" {
			bal.AvailableEquity = d.Get("availEq").Float()
			return false
		}
		return true
	})
	if bal.AvailableEquity > bal.TotalEquity {
		bal.AvailableEquity = bal.TotalEquity
	}
	return bal, nil
}

// Positions 拉取指定合约的持仓，并用未触发的条件单补全止盈止损字段。
// 条件单查询失败只降级为空结果，不阻断持仓读取。
func (c *Client) Positions(ctx context.Context, instID string) ([]types.Position, error) {
	path := "/api/v5/account/positions?instType=SWAP&instId=" + url.QueryEscape(instID)
	data, err := c.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return nil, err
	}

	var out []types.Position
	for _, row := range data.Array() {
		pos := parsePosition(row)
		if !pos.IsOpen() {
			continue
		}
		out = append(out, pos)
	}
	if len(out) == 0 {
		return out, nil
	}

	algos, err := c.pendingAlgoOrders(ctx, instID)
	if err != nil {
		logger.Warnf("拉取未触发条件单失败，止盈止损字段降级为空: %v", err)
		return out, nil
	}
	for i := range out {
		enrichWithAlgos(&out[i], algos)
	}
	return out, nil
}

func parsePosition(row gjson.Result) types.Position {
	return types.Position{
		Instrument:         row.Get("instId").String(),
		Side:               types.Side(row.Get("posSide").String()),
		Size:               row.Get("pos").Float(),
		EntryPrice:         row.Get("avgPx").Float(),
		BreakEvenPrice:     row.Get("bePx").Float(),
		UnrealizedPnL:      row.Get("upl").Float(),
		UnrealizedPnLRatio: row.Get("uplRatio").Float(),
		MarginMode:         row.Get("mgnMode").String(),
		Margin:             row.Get("margin").Float(),
		Leverage:           row.Get("lever").Float(),
		LiquidationPrice:   row.Get("liqPx").Float(),
		CreatedAt:          time.UnixMilli(row.Get("cTime").Int()),
	}
}

// algoOrder 未触发条件单的最小视图。
type algoOrder struct {
	AlgoID    string
	InstID    string
	PosSide   string
	StopLoss  float64
	TakeProfit float64
}

func (c *Client) pendingAlgoOrders(ctx context.Context, instID string) ([]algoOrder, error) {
	path := "/api/v5/trade/orders-algo-pending?ordType=conditional,oco&instId=" + url.QueryEscape(instID)
	data, err := c.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return nil, err
	}
	var out []algoOrder
	for _, row := range data.Array() {
		out = append(out, algoOrder{
			AlgoID:    row.Get("algoId").String(),
			InstID:    row.Get("instId").String(),
			PosSide:   row.Get("posSide").String(),
			StopLoss:  row.Get("slTriggerPx").Float(),
			TakeProfit: row.Get("tpTriggerPx").Float(),
		})
	}
	return out, nil
}

// enrichWithAlgos 按 instrument+posSide 匹配条件单并回填触发价。
func enrichWithAlgos(pos *types.Position, algos []algoOrder) {
	for _, a := range algos {
		if a.InstID != pos.Instrument || a.PosSide != string(pos.Side) {
			continue
		}
		if a.StopLoss > 0 {
			pos.StopLossTrigger = a.StopLoss
		}
		if a.TakeProfit > 0 {
			pos.TakeProfitTrigger = a.TakeProfit
		}
	}
}
