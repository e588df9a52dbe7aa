package decision

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jialazhu/okx1204/internal/pkg/convert"
	"github.com/jialazhu/okx1204/internal/pkg/jsonutil"
)

// 中文说明：
// 模型输出是自由文本，期望其中嵌有一个 JSON 决策对象。
// 解析流程：先按原文尝试，失败后去掉代码围栏并提取平衡大括号块再试一次；
// 两次都失败即判为硬解析失败，由调用方降级为安全 HOLD。

// ParseRaw 从模型原始输出解析 RawModelDecision。
func ParseRaw(raw string) (RawModelDecision, error) {
	out := RawModelDecision{Confidence: -1}

	block := strings.TrimSpace(raw)
	if block == "" {
		return out, fmt.Errorf("模型输出为空")
	}
	if !gjson.Valid(block) {
		extracted, ok := jsonutil.ExtractJSON(raw)
		if !ok {
			return out, fmt.Errorf("输出中未找到 JSON 决策对象")
		}
		block = extracted
		if !gjson.Valid(block) {
			return out, fmt.Errorf("提取到的 JSON 块无法解析")
		}
	}

	parsed := gjson.Parse(block)
	if parsed.IsArray() {
		// 个别模型会包两层数组，取第一个对象
		arr := parsed.Array()
		if len(arr) == 0 || !arr[0].IsObject() {
			return out, fmt.Errorf("JSON 数组中没有决策对象")
		}
		parsed = arr[0]
	}
	if !parsed.IsObject() {
		return out, fmt.Errorf("JSON 根节点不是对象")
	}

	action := strings.TrimSpace(firstField(parsed, "action", "decision", "signal").String())
	if action == "" {
		return out, fmt.Errorf("决策对象缺少 action 字段")
	}
	out.Action = action

	if v := firstField(parsed, "confidence", "confidence_pct"); v.Exists() {
		if f, ok := convert.ToFloat64Ok(v.Value()); ok {
			out.Confidence = f
		}
	}
	if v := firstField(parsed, "size", "position_size", "quantity", "contracts"); v.Exists() {
		if f, ok := convert.ToFloat64Ok(v.Value()); ok && f > 0 {
			out.Size = f
		}
	}
	if v := firstField(parsed, "leverage", "lever"); v.Exists() {
		if f, ok := convert.ToFloat64Ok(v.Value()); ok && f > 0 {
			out.Leverage = f
		}
	}
	if v := firstField(parsed, "stop_loss", "stopLoss", "sl"); v.Exists() {
		if f, ok := convert.ToFloat64Ok(v.Value()); ok && f > 0 {
			out.StopLoss = f
		}
	}
	if v := firstField(parsed, "take_profit", "takeProfit", "target", "tp"); v.Exists() {
		if f, ok := convert.ToFloat64Ok(v.Value()); ok && f > 0 {
			out.TakeProfit = f
		}
	}
	out.Reasoning = strings.TrimSpace(firstField(parsed, "reasoning", "reason", "analysis", "comment").String())

	return out, nil
}

func firstField(obj gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
