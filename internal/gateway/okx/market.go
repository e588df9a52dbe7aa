package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jialazhu/okx1204/internal/market"
	"github.com/jialazhu/okx1204/internal/pkg/convert"
)

// Ticker 拉取最新行情快照。
func (c *Client) Ticker(ctx context.Context, instID string) (market.Ticker, error) {
	path := "/api/v5/market/ticker?instId=" + url.QueryEscape(instID)
	data, err := c.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return market.Ticker{}, err
	}
	arr := data.Array()
	if len(arr) == 0 {
		return market.Ticker{}, fmt.Errorf("ticker 响应为空: %s", instID)
	}
	row := arr[0]
	return market.Ticker{
		Last:      row.Get("last").Float(),
		Open24h:   row.Get("open24h").Float(),
		Volume24h: row.Get("vol24h").Float(),
		UpdatedAt: time.UnixMilli(row.Get("ts").Int()),
	}, nil
}

// Candles 拉取 K 线并归一化为旧→新排序。
// OKX 返回新→旧，归一化由 market.NormalizeOldestFirst 统一处理。
func (c *Client) Candles(ctx context.Context, instID, bar string, limit int) (market.Candles, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		url.QueryEscape(instID), url.QueryEscape(bar), limit)
	data, err := c.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return nil, err
	}

	rows := data.Array()
	candles := make(market.Candles, 0, len(rows))
	for _, row := range rows {
		cells := row.Array()
		if len(cells) < 6 {
			continue
		}
		candles = append(candles, parseCandle(cells))
	}
	return market.NormalizeOldestFirst(candles), nil
}

// OKX K 线行格式: [ts, o, h, l, c, vol, ...]，全部为字符串。
func parseCandle(cells []gjson.Result) market.Candle {
	return market.Candle{
		Timestamp: cells[0].Int(),
		Open:      convert.ToFloat64(cells[1].Value()),
		High:      convert.ToFloat64(cells[2].Value()),
		Low:       convert.ToFloat64(cells[3].Value()),
		Close:     convert.ToFloat64(cells[4].Value()),
		Volume:    convert.ToFloat64(cells[5].Value()),
	}
}
