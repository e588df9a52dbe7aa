package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jialazhu/okx1204/internal/logger"
	"github.com/jialazhu/okx1204/internal/types"
)

// 中文说明：
// 交易侧统一走全仓杠杆 + 双向持仓（posSide long/short）。
// 止盈止损通过附带条件单（开仓时）或独立 OCO 条件单（持仓调整时）维护，
// 更新语义为"撤掉未触发的旧条件单，再挂新单"。

// SetLeverage 设置指定方向的杠杆倍数。
func (c *Client) SetLeverage(ctx context.Context, instID string, leverage float64, side types.Side) error {
	body := fmt.Sprintf(`{"instId":%q,"lever":%q,"mgnMode":"cross","posSide":%q}`,
		instID, fmt.Sprintf("%.0f", leverage), string(side))
	_, err := c.do(ctx, http.MethodPost, "/api/v5/account/set-leverage", body)
	return err
}

// PlaceMarketOrder 市价开仓，可选附带止盈止损触发价。
// stop/takeProfit 传 0 表示不设置。
func (c *Client) PlaceMarketOrder(ctx context.Context, instID string, side types.Side, size, stop, takeProfit float64) error {
	order := map[string]any{
		"instId":  instID,
		"tdMode":  "cross",
		"ordType": "market",
		"sz":      formatSize(size),
		"posSide": string(side),
	}
	if side == types.SideLong {
		order["side"] = "buy"
	} else {
		order["side"] = "sell"
	}

	var attach []map[string]string
	if px := formatPrice(stop); px != "" {
		attach = append(attach, map[string]string{"slTriggerPx": px, "slOrdPx": "-1"})
	}
	if px := formatPrice(takeProfit); px != "" {
		attach = append(attach, map[string]string{"tpTriggerPx": px, "tpOrdPx": "-1"})
	}
	if len(attach) > 0 {
		order["attachAlgoOrds"] = attach
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("序列化下单请求失败: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", string(body)); err != nil {
		return err
	}
	logger.Infof("市价单已提交 %s %s sz=%s sl=%s tp=%s",
		instID, side, formatSize(size), formatPrice(stop), formatPrice(takeProfit))
	return nil
}

// ClosePosition 市价全平指定方向持仓。
func (c *Client) ClosePosition(ctx context.Context, instID string, side types.Side) error {
	body := fmt.Sprintf(`{"instId":%q,"mgnMode":"cross","posSide":%q}`, instID, string(side))
	if _, err := c.do(ctx, http.MethodPost, "/api/v5/trade/close-position", body); err != nil {
		return err
	}
	logger.Infof("持仓已市价平仓 %s %s", instID, side)
	return nil
}

// UpdateStopTakeProfit 更新持仓的止盈止损：先撤未触发条件单，再挂新的 OCO/单边条件单。
// stop 与 takeProfit 至少一个大于 0，否则为空操作。
func (c *Client) UpdateStopTakeProfit(ctx context.Context, instID string, side types.Side, size, stop, takeProfit float64) error {
	slPx := formatPrice(stop)
	tpPx := formatPrice(takeProfit)
	if slPx == "" && tpPx == "" {
		return nil
	}

	if err := c.cancelPendingAlgos(ctx, instID, side); err != nil {
		return err
	}

	order := map[string]any{
		"instId":  instID,
		"tdMode":  "cross",
		"posSide": string(side),
		"sz":      formatSize(size),
	}
	if side == types.SideLong {
		order["side"] = "sell"
	} else {
		order["side"] = "buy"
	}
	switch {
	case slPx != "" && tpPx != "":
		order["ordType"] = "oco"
		order["slTriggerPx"] = slPx
		order["slOrdPx"] = "-1"
		order["tpTriggerPx"] = tpPx
		order["tpOrdPx"] = "-1"
	case slPx != "":
		order["ordType"] = "conditional"
		order["slTriggerPx"] = slPx
		order["slOrdPx"] = "-1"
	default:
		order["ordType"] = "conditional"
		order["tpTriggerPx"] = tpPx
		order["tpOrdPx"] = "-1"
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("序列化条件单请求失败: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order-algo", string(body)); err != nil {
		return err
	}
	logger.Infof("止盈止损已更新 %s %s sl=%s tp=%s", instID, side, slPx, tpPx)
	return nil
}

func (c *Client) cancelPendingAlgos(ctx context.Context, instID string, side types.Side) error {
	algos, err := c.pendingAlgoOrders(ctx, instID)
	if err != nil {
		return fmt.Errorf("查询待撤条件单失败: %w", err)
	}
	var batch []map[string]string
	for _, a := range algos {
		if a.PosSide != string(side) {
			continue
		}
		batch = append(batch, map[string]string{"algoId": a.AlgoID, "instId": a.InstID})
	}
	if len(batch) == 0 {
		return nil
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("序列化撤单请求失败: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/api/v5/trade/cancel-algos", string(body))
	return err
}

// Instruments 查询合约元数据，取合约乘数（ctVal）。
func (c *Client) ContractMultiplier(ctx context.Context, instID string) (float64, error) {
	path := "/api/v5/public/instruments?instType=SWAP&instId=" + url.QueryEscape(instID)
	data, err := c.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return 0, err
	}
	arr := data.Array()
	if len(arr) == 0 {
		return 0, fmt.Errorf("未找到合约 %s", instID)
	}
	mult := arr[0].Get("ctVal").Float()
	if mult <= 0 {
		mult = 1
	}
	return mult, nil
}
