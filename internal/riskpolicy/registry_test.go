package riskpolicy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "risk_policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validPolicyYAML = `
stages:
  - name: 保守起步
    min_equity: 0
    max_equity: 20
    leverage: 20
    risk_factor: 0.8
    allow_dca: false
    max_position_ratio: 0.8
  - name: 稳健成长
    min_equity: 20
    max_equity: 80
    leverage: 10
    risk_factor: 0.5
    allow_dca: true
    max_position_ratio: 0.6
  - name: 资金防御
    min_equity: 80
    max_equity: 0
    leverage: 5
    risk_factor: 0.3
    allow_dca: true
    max_position_ratio: 0.5
min_notional_first: 100
min_notional_add: 100
safety_reserve: 0.9
max_loss_fraction: 0.2
`

func TestRegistryLoadsValidPolicy(t *testing.T) {
	path := writePolicy(t, validPolicyYAML)
	reg, err := NewRegistry(path)
	require.NoError(t, err)

	p := reg.Current()
	assert.Len(t, p.Stages, 3)
	assert.Equal(t, 100.0, p.MinNotionalFirst)
	// 文件未设置的字段落回默认值
	assert.Equal(t, Default().Ladder.DeepLockRatio, p.Ladder.DeepLockRatio)
}

func TestRegistryRejectsOverlappingStages(t *testing.T) {
	path := writePolicy(t, `
stages:
  - name: a
    min_equity: 0
    max_equity: 50
    leverage: 10
    risk_factor: 0.5
  - name: b
    min_equity: 40
    max_equity: 0
    leverage: 5
    risk_factor: 0.3
`)
	_, err := NewRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "区间不连续")
}

func TestRegistryRejectsSchemaViolation(t *testing.T) {
	path := writePolicy(t, `
stages:
  - name: a
    min_equity: 0
    max_equity: 0
    leverage: 10
    risk_factor: 1.7
`)
	_, err := NewRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}

func TestRegistryEmptyPathUsesDefault(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)
	assert.Equal(t, Default(), reg.Current())
}

func TestStageForSelectsByEquity(t *testing.T) {
	p := Default()
	assert.Equal(t, "保守起步", p.StageFor(15).Name)
	assert.Equal(t, "稳健成长", p.StageFor(20).Name)
	assert.Equal(t, "稳健成长", p.StageFor(79.99).Name)
	assert.Equal(t, "资金防御", p.StageFor(80).Name)
	assert.Equal(t, "资金防御", p.StageFor(100000).Name)
}
