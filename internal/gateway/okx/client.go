// Package okx 封装 OKX v5 REST 接口：行情、账户、下单与条件单维护。
// 所有价格一律按 2 位小数精度发送，非法价格视为未设置而不是转发给交易所。
package okx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/jialazhu/okx1204/internal/logger"
)

const defaultBaseURL = "https://www.okx.com"

// Config 客户端配置。Simulated 对应 OKX 模拟盘标头。
type Config struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	BaseURL    string
	Simulated  bool
	Timeout    time.Duration
}

// Client OKX v5 REST 客户端。只覆盖单合约交易控制所需的子集。
type Client struct {
	http *resty.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: http, cfg: cfg}
}

// 已知错误码的可读翻译，其余保留原始 code+msg。
var errCodeText = map[string]string{
	"50111": "API Key 无效",
	"50113": "签名校验失败",
	"51008": "账户可用余额不足",
	"51000": "请求参数非法",
	"50011": "请求频率超限",
}

// apiError 统一执行失败错误，保留原始码与消息供日志排查。
type apiError struct {
	Code string
	Msg  string
}

func (e *apiError) Error() string {
	if hint, ok := errCodeText[e.Code]; ok {
		return fmt.Sprintf("执行失败: %s (code=%s, msg=%s)", hint, e.Code, e.Msg)
	}
	return fmt.Sprintf("执行失败: code=%s, msg=%s", e.Code, e.Msg)
}

// do 签名请求并解包 OKX 响应信封 {code, msg, data}。
// 返回 data 节点；code 非 0 时返回 apiError。
func (c *Client) do(ctx context.Context, method, path, body string) (gjson.Result, error) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	req := c.http.R().SetContext(ctx).
		SetHeader("OK-ACCESS-KEY", c.cfg.APIKey).
		SetHeader("OK-ACCESS-SIGN", c.sign(ts, method, path, body)).
		SetHeader("OK-ACCESS-TIMESTAMP", ts).
		SetHeader("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	if c.cfg.Simulated {
		req.SetHeader("x-simulated-trading", "1")
	}
	if body != "" {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("okx 请求失败 %s %s: %w", method, path, err)
	}
	envelope := gjson.ParseBytes(resp.Body())
	code := envelope.Get("code").String()
	if resp.StatusCode() >= 400 || (code != "" && code != "0") {
		logger.Warnf("okx 响应异常 %s %s: status=%d code=%s msg=%s",
			method, path, resp.StatusCode(), code, envelope.Get("msg").String())
		return gjson.Result{}, &apiError{Code: code, Msg: envelope.Get("msg").String()}
	}
	return envelope.Get("data"), nil
}

// sign OKX v5 签名：base64(HMAC-SHA256(timestamp+method+path+body))。
func (c *Client) sign(ts, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(ts + strings.ToUpper(method) + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// formatPrice 按固定 2 位小数精度格式化价格；
// 非正或非法价格返回空串，表示"未设置"。
func formatPrice(p float64) string {
	if !(p > 0) {
		return ""
	}
	return fmt.Sprintf("%.2f", p)
}

// formatSize 张数固定 2 位小数。
func formatSize(s float64) string {
	return fmt.Sprintf("%.2f", s)
}
