// Package riskpolicy 管理风险策略常量：资金阶段、止盈阶梯、DCA 区间、
// 最小名义价值与安全预留。全部来自配置而非硬编码，支持热更新。
package riskpolicy

// Stage 按账户总权益划分的离散风险档位。
// 区间 [MinEquity, MaxEquity)，MaxEquity<=0 表示无上界；各档位必须连续不重叠。
type Stage struct {
	Name             string  `yaml:"name" json:"name"`
	MinEquity        float64 `yaml:"min_equity" json:"min_equity"`
	MaxEquity        float64 `yaml:"max_equity" json:"max_equity"`
	Leverage         float64 `yaml:"leverage" json:"leverage"`
	RiskFactor       float64 `yaml:"risk_factor" json:"risk_factor"`
	AllowDCA         bool    `yaml:"allow_dca" json:"allow_dca"`
	MaxPositionRatio float64 `yaml:"max_position_ratio" json:"max_position_ratio"`
}

// ProfitLadder 盈利保护阶梯：阈值按距离保本价的价差占开仓价百分比衡量。
type ProfitLadder struct {
	BufferPct        float64 `yaml:"buffer_pct" json:"buffer_pct"`                 // 保本附近缓冲区，不动止损
	BreakEvenPct     float64 `yaml:"break_even_pct" json:"break_even_pct"`         // 进入该区后锁定保本
	PartialPct       float64 `yaml:"partial_pct" json:"partial_pct"`               // 进入该区后按 PartialLockRatio 锁定
	PartialLockRatio float64 `yaml:"partial_lock_ratio" json:"partial_lock_ratio"` // 例如 0.4
	DeepLockRatio    float64 `yaml:"deep_lock_ratio" json:"deep_lock_ratio"`       // 深度盈利锁定比例，例如 0.75
}

// DCABand 亏损加仓的回撤容忍区间（占开仓价百分比）。
type DCABand struct {
	MinDrawdownPct float64 `yaml:"min_drawdown_pct" json:"min_drawdown_pct"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
}

// Pyramid 顺势加仓条件。
type Pyramid struct {
	MinROIPct float64 `yaml:"min_roi_pct" json:"min_roi_pct"`
}

// Policy 完整的风险策略配置。
type Policy struct {
	Stages  []Stage      `yaml:"stages" json:"stages"`
	Ladder  ProfitLadder `yaml:"profit_ladder" json:"profit_ladder"`
	DCA     DCABand      `yaml:"dca" json:"dca"`
	Pyramid Pyramid      `yaml:"pyramid" json:"pyramid"`

	MinNotionalFirst     float64 `yaml:"min_notional_first" json:"min_notional_first"`
	MinNotionalAdd       float64 `yaml:"min_notional_add" json:"min_notional_add"`
	SafetyReserve        float64 `yaml:"safety_reserve" json:"safety_reserve"`
	MaxLossFraction      float64 `yaml:"max_loss_fraction" json:"max_loss_fraction"`
	FeeRate              float64 `yaml:"fee_rate" json:"fee_rate"`
	ConfidenceBoostFloor float64 `yaml:"confidence_boost_floor" json:"confidence_boost_floor"`
	StopBufferPct        float64 `yaml:"stop_buffer_pct" json:"stop_buffer_pct"`
}

// Default 返回内置默认策略（配置文件缺失时使用）。
func Default() Policy {
	return Policy{
		Stages: []Stage{
			{Name: "保守起步", MinEquity: 0, MaxEquity: 20, Leverage: 20, RiskFactor: 0.8, AllowDCA: false, MaxPositionRatio: 0.8},
			{Name: "稳健成长", MinEquity: 20, MaxEquity: 80, Leverage: 10, RiskFactor: 0.5, AllowDCA: true, MaxPositionRatio: 0.6},
			{Name: "资金防御", MinEquity: 80, MaxEquity: 0, Leverage: 5, RiskFactor: 0.3, AllowDCA: true, MaxPositionRatio: 0.5},
		},
		Ladder: ProfitLadder{
			BufferPct:        0.3,
			BreakEvenPct:     0.8,
			PartialPct:       2.0,
			PartialLockRatio: 0.4,
			DeepLockRatio:    0.75,
		},
		DCA:     DCABand{MinDrawdownPct: 1.5, MaxDrawdownPct: 8.0},
		Pyramid: Pyramid{MinROIPct: 10.0},

		MinNotionalFirst:     100,
		MinNotionalAdd:       100,
		SafetyReserve:        0.90,
		MaxLossFraction:      0.20,
		FeeRate:              0.0005,
		ConfidenceBoostFloor: 40,
		StopBufferPct:        0.2,
	}
}

// StageFor 按总权益选档。档位连续不重叠时必有唯一命中；
// 配置异常时兜底返回最后一档。
func (p Policy) StageFor(totalEquity float64) Stage {
	for _, s := range p.Stages {
		if totalEquity < s.MinEquity {
			continue
		}
		if s.MaxEquity > 0 && totalEquity >= s.MaxEquity {
			continue
		}
		return s
	}
	if len(p.Stages) == 0 {
		return Default().Stages[0]
	}
	return p.Stages[len(p.Stages)-1]
}
