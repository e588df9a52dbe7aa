package riskpolicy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jialazhu/okx1204/internal/logger"
)

// Snapshot 某一时刻的策略快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Policy   Policy
}

// ChangeListener 在 registry 重载时触发。
type ChangeListener func(Snapshot)

// Registry 管理风险策略配置：加载、schema 校验、热更新。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取策略文件并监听更新。path 为空时使用内置默认策略（不监听）。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.snapshot = Snapshot{Version: 1, LoadedAt: time.Now(), Policy: Default()}
		logger.Infof("风险策略：未配置文件，使用内置默认策略")
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read risk policy failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("风险策略重载失败: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Current 返回当前策略。
func (r *Registry) Current() Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Policy
}

// Snapshot 返回当前快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	policy, err := readPolicyFile(r.path)
	if err != nil {
		return err
	}
	if err := validatePolicy(policy); err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Policy:   policy,
	}
	r.mu.Unlock()
	logger.Infof("风险策略已加载：%d 个资金档位（%s）", len(policy.Stages), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := r.snapshot
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("risk policy listener")
			cb(snap)
		}(fn)
	}
}

func safeRecover(tag string) {
	if rec := recover(); rec != nil {
		logger.Errorf("%s panic: %v", tag, rec)
	}
}

func readPolicyFile(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read risk policy failed: %w", err)
	}
	// 先做 schema 校验，再做严格类型解码
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Policy{}, fmt.Errorf("parse risk policy failed: %w", err)
	}
	if err := policySchema.Validate(normalizeYAML(generic)); err != nil {
		return Policy{}, fmt.Errorf("risk policy schema violation: %w", err)
	}
	policy := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil {
		return Policy{}, fmt.Errorf("decode risk policy failed: %w", err)
	}
	return policy, nil
}

// validatePolicy 做 schema 表达不了的结构性检查：档位连续且不重叠。
func validatePolicy(p Policy) error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("risk policy requires at least one stage")
	}
	prevMax := 0.0
	for i, s := range p.Stages {
		if s.RiskFactor <= 0 || s.RiskFactor > 1 {
			return fmt.Errorf("stage %q risk_factor 需位于 (0,1]", s.Name)
		}
		if s.Leverage <= 0 {
			return fmt.Errorf("stage %q leverage 需 >0", s.Name)
		}
		if s.MinEquity != prevMax {
			return fmt.Errorf("stage %q 区间不连续：min_equity=%.2f，期望 %.2f", s.Name, s.MinEquity, prevMax)
		}
		last := i == len(p.Stages)-1
		if last {
			if s.MaxEquity > 0 {
				return fmt.Errorf("最后一档 %q 的 max_equity 必须为 0（无上界）", s.Name)
			}
			continue
		}
		if s.MaxEquity <= s.MinEquity {
			return fmt.Errorf("stage %q 区间无效：max_equity 需大于 min_equity", s.Name)
		}
		prevMax = s.MaxEquity
	}
	if p.SafetyReserve <= 0 || p.SafetyReserve > 1 {
		return fmt.Errorf("safety_reserve 需位于 (0,1]")
	}
	if p.MaxLossFraction <= 0 || p.MaxLossFraction >= 1 {
		return fmt.Errorf("max_loss_fraction 需位于 (0,1)")
	}
	if p.DCA.MinDrawdownPct >= p.DCA.MaxDrawdownPct {
		return fmt.Errorf("dca 区间无效：min_drawdown_pct 需小于 max_drawdown_pct")
	}
	return nil
}

var policySchema = mustCompileSchema(policySchemaJSON)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("risk_policy.json", strings.NewReader(src)); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("risk_policy.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// normalizeYAML 把 yaml 解出的值转成 jsonschema 可校验的 JSON 形态
// （map[string]any / []any / float64 / string / bool / nil）。
func normalizeYAML(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
