package config

import (
	"sync"

	"github.com/jialazhu/okx1204/internal/logger"
)

// MaskSentinel 掩码哨兵：更新请求里出现该值表示"保留现有密钥"。
const MaskSentinel = "********"

// Manager 持有运行期配置，支持带掩码语义的热替换。
// 读多写少，写入只来自控制接口。
type Manager struct {
	mu        sync.RWMutex
	cfg       Config
	listeners []func(Config)
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Current 返回配置副本。
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Masked 返回对外展示的配置：非空密钥替换为掩码哨兵。
func (m *Manager) Masked() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.cfg
	out.OKX.APIKey = mask(out.OKX.APIKey)
	out.OKX.SecretKey = mask(out.OKX.SecretKey)
	out.OKX.Passphrase = mask(out.OKX.Passphrase)
	out.AI.APIKey = mask(out.AI.APIKey)
	return out
}

// CredentialPatch 控制接口提交的凭据更新。
// 密钥字段为空或等于掩码哨兵时保留现值。
type CredentialPatch struct {
	OKXAPIKey     string `json:"okx_api_key"`
	OKXSecretKey  string `json:"okx_secret_key"`
	OKXPassphrase string `json:"okx_passphrase"`
	Simulated     *bool  `json:"simulated"`
	AIAPIKey      string `json:"ai_api_key"`
	AIModel       string `json:"ai_model"`
}

// Apply 按掩码语义合并凭据更新并通知监听者。
func (m *Manager) Apply(patch CredentialPatch) Config {
	m.mu.Lock()
	applySecret(&m.cfg.OKX.APIKey, patch.OKXAPIKey)
	applySecret(&m.cfg.OKX.SecretKey, patch.OKXSecretKey)
	applySecret(&m.cfg.OKX.Passphrase, patch.OKXPassphrase)
	applySecret(&m.cfg.AI.APIKey, patch.AIAPIKey)
	if patch.Simulated != nil {
		m.cfg.OKX.Simulated = *patch.Simulated
	}
	if patch.AIModel != "" {
		m.cfg.AI.Model = patch.AIModel
	}
	updated := m.cfg
	listeners := append([]func(Config){}, m.listeners...)
	m.mu.Unlock()

	logger.Infof("配置已更新（凭据掩码），通知 %d 个监听者", len(listeners))
	for _, fn := range listeners {
		fn(updated)
	}
	return updated
}

// OnChange 注册配置变更监听，用于重建依赖凭据的客户端。
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func applySecret(dst *string, val string) {
	if val == "" || val == MaskSentinel {
		return
	}
	*dst = val
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return MaskSentinel
}
