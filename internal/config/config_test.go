package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
okx:
  api_key: k
trading:
  instrument: ETH-USDT-SWAP
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, "15m", cfg.Trading.Bar)
	assert.Equal(t, 5, cfg.Trading.PollIntervalSeconds)
	assert.Equal(t, 180, cfg.Trading.AnalysisIntervalSeconds)
}

func TestLoadRejectsNonSwapInstrument(t *testing.T) {
	path := writeConfig(t, `
trading:
  instrument: ETH-USDT
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "永续合约")
}

func TestLoadRejectsInvertedIntervals(t *testing.T) {
	path := writeConfig(t, `
trading:
  instrument: ETH-USDT-SWAP
  poll_interval_seconds: 600
  analysis_interval_seconds: 60
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestSecretEnvOverride(t *testing.T) {
	t.Setenv("OKX1204_OKX_API_KEY", "env-key")
	path := writeConfig(t, `
okx:
  api_key: file-key
trading:
  instrument: ETH-USDT-SWAP
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OKX.APIKey, "环境变量应覆盖文件值")
}

func TestManagerMaskedView(t *testing.T) {
	m := NewManager(Config{
		OKX: OKXConfig{APIKey: "real-key", SecretKey: "real-secret"},
		AI:  AIConfig{APIKey: "sk-abc", Model: "deepseek-chat"},
	})
	masked := m.Masked()
	assert.Equal(t, MaskSentinel, masked.OKX.APIKey)
	assert.Equal(t, MaskSentinel, masked.OKX.SecretKey)
	assert.Equal(t, MaskSentinel, masked.AI.APIKey)
	assert.Empty(t, masked.OKX.Passphrase, "空密钥不产生掩码")
	assert.Equal(t, "real-key", m.Current().OKX.APIKey, "原值不受掩码影响")
}

func TestManagerApplyKeepsSecretsOnSentinel(t *testing.T) {
	m := NewManager(Config{OKX: OKXConfig{APIKey: "old-key", SecretKey: "old-secret"}})

	sim := true
	updated := m.Apply(CredentialPatch{
		OKXAPIKey:    MaskSentinel, // 哨兵：保留现值
		OKXSecretKey: "new-secret",
		Simulated:    &sim,
	})
	assert.Equal(t, "old-key", updated.OKX.APIKey)
	assert.Equal(t, "new-secret", updated.OKX.SecretKey)
	assert.True(t, updated.OKX.Simulated)
}

func TestManagerNotifiesListeners(t *testing.T) {
	m := NewManager(Config{})
	var got Config
	m.OnChange(func(c Config) { got = c })

	m.Apply(CredentialPatch{AIAPIKey: "sk-new", AIModel: "gpt-4o"})
	assert.Equal(t, "sk-new", got.AI.APIKey)
	assert.Equal(t, "gpt-4o", got.AI.Model)
}
