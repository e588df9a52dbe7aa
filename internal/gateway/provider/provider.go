// Package provider 封装决策模型调用：OpenAI 兼容的聊天补全接口，
// 单请求单响应，带硬超时与有限重试。
package provider

import "context"

// Decider 决策模型能力：给定结构化提示词，返回自由文本
// （其中应嵌有 JSON 决策对象，解析在上层进行）。
type Decider interface {
	ID() string
	Decide(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
