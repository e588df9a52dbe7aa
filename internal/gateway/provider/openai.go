package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jialazhu/okx1204/internal/logger"
)

// 中文说明：
// OpenAIChat：兼容 OpenAI / DeepSeek / Qwen 的 /v1/chat/completions 接口。
// 模型调用必须有硬超时：上游挂死只能作废当前周期，不允许拖住轮询循环。
// 对 429/5xx 做有限重试，支持 Retry-After。

const defaultDeadline = 120 * time.Second

// Config 模型接入配置。
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Deadline   time.Duration
	MaxRetries int
}

type OpenAIChat struct {
	http *resty.Client
	cfg  Config
}

func NewOpenAIChat(cfg Config) *OpenAIChat {
	if cfg.Deadline <= 0 {
		cfg.Deadline = defaultDeadline
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &OpenAIChat{
		http: resty.New().SetTimeout(cfg.Deadline),
		cfg:  cfg,
	}
}

func (c *OpenAIChat) ID() string {
	return "openai:" + c.cfg.Model
}

// Decide 单次决策调用。返回模型原文，由调用方解析。
func (c *OpenAIChat) Decide(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Deadline)
	defer cancel()

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})
	body := map[string]any{"model": c.cfg.Model, "messages": messages, "temperature": 0.5}

	url := c.endpoint()
	logger.Debugf("[AI] 请求 POST %s model=%s key=%s", url, c.cfg.Model, maskSecret(c.cfg.APIKey))

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("模型调用超时或被取消: %w", err)
		}
		resp, err := c.http.R().SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+c.cfg.APIKey).
			SetBody(body).
			Post(url)
		if err != nil {
			return "", fmt.Errorf("模型请求失败: %w", err)
		}

		if resp.StatusCode()/100 == 2 {
			return extractContent(resp.Body())
		}

		msg := extractErrorMessage(resp.Body())
		if msg == "" {
			msg = resp.Status()
		}
		lastErr = fmt.Errorf("模型响应 status=%d: %s", resp.StatusCode(), msg)
		if !retryable(resp.StatusCode()) || attempt >= c.cfg.MaxRetries {
			break
		}
		wait := retryWait(resp.Header().Get("Retry-After"), attempt)
		logger.Warnf("[AI] %v，%s 后重试（第 %d 次）", lastErr, wait, attempt+1)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", fmt.Errorf("模型调用超时或被取消: %w", ctx.Err())
		}
	}
	return "", lastErr
}

// endpoint 规范化 BaseURL，容忍配置里带了完整 /chat/completions。
func (c *OpenAIChat) endpoint() string {
	url := c.cfg.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func extractContent(body []byte) (string, error) {
	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("模型响应解析失败: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("模型响应没有 choices")
	}
	return r.Choices[0].Message.Content, nil
}

func extractErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return strings.TrimSpace(e.Error.Message)
}

func retryable(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// retryWait 优先 Retry-After，其次指数退避 0.8s / 1.6s / 3.2s，封顶 8s。
func retryWait(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

// maskSecret 日志中只暴露密钥末 4 位。
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
