package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jialazhu/okx1204/internal/analysis/indicator"
	"github.com/jialazhu/okx1204/internal/decision"
	"github.com/jialazhu/okx1204/internal/gateway/provider"
	"github.com/jialazhu/okx1204/internal/logger"
	"github.com/jialazhu/okx1204/internal/market"
	"github.com/jialazhu/okx1204/internal/pkg/jsonutil"
	"github.com/jialazhu/okx1204/internal/pkg/text"
	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/strategy"
	"github.com/jialazhu/okx1204/internal/types"
)

// Exchange 交易所能力抽象，由 gateway/okx 实现。
type Exchange interface {
	Ticker(ctx context.Context, instID string) (market.Ticker, error)
	Candles(ctx context.Context, instID, bar string, limit int) (market.Candles, error)
	Balance(ctx context.Context) (types.AccountBalance, error)
	Positions(ctx context.Context, instID string) ([]types.Position, error)
	ContractMultiplier(ctx context.Context, instID string) (float64, error)
	SetLeverage(ctx context.Context, instID string, leverage float64, side types.Side) error
	PlaceMarketOrder(ctx context.Context, instID string, side types.Side, size, stop, takeProfit float64) error
	ClosePosition(ctx context.Context, instID string, side types.Side) error
	UpdateStopTakeProfit(ctx context.Context, instID string, side types.Side, size, stop, takeProfit float64) error
}

// Config 引擎节奏与范围配置。
type Config struct {
	Instrument       string
	Bar              string
	CandleLimit      int
	PollInterval     time.Duration // 行情/账户刷新节奏
	AnalysisInterval time.Duration // 决策管线最小间隔，限制模型调用频率
}

func (c *Config) applyDefaults() {
	if c.Bar == "" {
		c.Bar = "15m"
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = 100
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.AnalysisInterval <= 0 {
		c.AnalysisInterval = 3 * time.Minute
	}
}

// Engine 单合约交易控制器。固定节奏轮询行情与账户，
// 按更长的分析间隔运行一次完整的决策管线：
// 取数 → 指标 → 风险评估 → 模型调用 → 复核 → 可选下单。
// 所有工作都在 Run 的单个 goroutine 上顺序执行，周期之间天然无重叠。
type Engine struct {
	cfg      Config
	exch     Exchange
	model    provider.Decider
	policies *riskpolicy.Registry
	builder  *decision.Builder
	state    *State

	mu               sync.RWMutex
	enabled          bool
	lastAnalysisTime time.Time
	multiplier       float64
}

func NewEngine(cfg Config, exch Exchange, model provider.Decider, policies *riskpolicy.Registry, builder *decision.Builder, state *State) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:      cfg,
		exch:     exch,
		model:    model,
		policies: policies,
		builder:  builder,
		state:    state,
		enabled:  true,
	}
}

// Start 允许新的分析周期与下单。
func (e *Engine) Start() {
	e.mu.Lock()
	e.enabled = true
	e.mu.Unlock()
	logger.Infof("引擎已启动 %s", e.cfg.Instrument)
}

// Stop 劝告式停止：不再开始新的分析周期、抑制下单，
// 已在途的模型调用或订单提交会正常完成。
func (e *Engine) Stop() {
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()
	logger.Infof("引擎已停止 %s（在途周期不中断）", e.cfg.Instrument)
}

func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// ReplaceGateways 在配置热更新后替换交易所与模型客户端。
// 在途周期继续使用旧客户端，下一周期起生效。
func (e *Engine) ReplaceGateways(exch Exchange, model provider.Decider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if exch != nil {
		e.exch = exch
		e.multiplier = 0
	}
	if model != nil {
		e.model = model
	}
}

func (e *Engine) gateways() (Exchange, provider.Decider) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exch, e.model
}

// Run 轮询主循环，阻塞直到 ctx 取消。行情刷新始终进行，
// 分析管线受 Enabled 与 lastAnalysisTime 双重闸门控制。
func (e *Engine) Run(ctx context.Context) error {
	logger.Infof("轮询循环启动 %s poll=%s analysis=%s",
		e.cfg.Instrument, e.cfg.PollInterval, e.cfg.AnalysisInterval)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("轮询循环退出 %s", e.cfg.Instrument)
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick 单次轮询。取数失败只记日志作废本周期，固定轮询间隔就是重试延迟。
// 周期开头取一次网关快照，配置热更新不影响在途周期。
func (e *Engine) tick(ctx context.Context) {
	exch, model := e.gateways()
	snap, err := e.poll(ctx, exch)
	if err != nil {
		logger.Warnf("周期取数失败，本周期作废: %v", err)
		return
	}
	e.state.SetMarket(snap.Ticker, snap.Candles, snap.Balance, snap.Position)

	if !e.analysisDue() {
		return
	}
	e.runAnalysis(ctx, snap, exch, model)
}

// poll 并行拉取行情与账户四件套。
func (e *Engine) poll(ctx context.Context, exch Exchange) (Snapshot, error) {
	var snap Snapshot
	snap.Instrument = e.cfg.Instrument

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		tk, err := exch.Ticker(gctx, e.cfg.Instrument)
		if err != nil {
			return fmt.Errorf("ticker: %w", err)
		}
		snap.Ticker = tk
		return nil
	})
	group.Go(func() error {
		cs, err := exch.Candles(gctx, e.cfg.Instrument, e.cfg.Bar, e.cfg.CandleLimit)
		if err != nil {
			return fmt.Errorf("candles: %w", err)
		}
		snap.Candles = cs
		return nil
	})
	group.Go(func() error {
		bal, err := exch.Balance(gctx)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		snap.Balance = bal
		return nil
	})
	group.Go(func() error {
		ps, err := exch.Positions(gctx, e.cfg.Instrument)
		if err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		if len(ps) > 0 {
			snap.Position = ps[0]
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// analysisDue 时间戳闸门：单一周期性触发源下无需加锁防重入，
// 只约束两次分析之间的最小间隔与启停开关。
func (e *Engine) analysisDue() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.enabled {
		return false
	}
	return time.Since(e.lastAnalysisTime) >= e.cfg.AnalysisInterval
}

// runAnalysis 完整决策管线，运行到底后才返回。
// 每个周期恰好产生一条结果日志与一条决策历史。
func (e *Engine) runAnalysis(ctx context.Context, snap Snapshot, exch Exchange, model provider.Decider) {
	e.mu.Lock()
	e.lastAnalysisTime = time.Now()
	e.mu.Unlock()

	policy := e.policies.Current()
	snap.Stage = strategy.ClassifyStage(policy, snap.Balance.TotalEquity)
	snap.Indicators = indicator.ComputeSnapshot(snap.Candles)
	if rep, err := indicator.ComputeReport(snap.Candles, e.cfg.Bar); err == nil {
		snap.Report = rep
	}

	mult, err := e.contractMultiplier(ctx, exch)
	if err != nil {
		logger.Warnf("合约乘数获取失败，按 1 处理: %v", err)
		mult = 1
	}
	snap.Assessment = strategy.Analyze(strategy.AnalyzeInput{
		Position:           snap.Position,
		Price:              snap.Ticker.Last,
		Indicators:         snap.Indicators,
		Stage:              snap.Stage,
		Policy:             policy,
		TotalEquity:        snap.Balance.TotalEquity,
		ContractMultiplier: mult,
	})

	fd := e.decide(ctx, snap, policy, mult, model)
	e.state.SetAnalysis(snap.Indicators, snap.Report, snap.Stage, snap.Assessment, &fd)
	if len(fd.Notes) > 0 {
		logger.InfoBlock(fd.Narrative())
	}

	if e.Enabled() {
		if err := e.execute(ctx, fd, snap.Position, exch); err != nil {
			logger.Errorf("[%s] 决策执行失败 action=%s: %v", fd.ID, fd.Action, err)
			return
		}
	}
	logger.Infof("[%s] 周期完成 action=%s conf=%.0f size=%.2f lev=%.0f stage=%s",
		fd.ID, fd.Action, fd.Confidence, fd.Size, fd.Leverage, snap.Stage.Name)
}

// decide 调用模型并复核。模型调用或解析任何一步失败都落为安全 HOLD，
// 解析失败永远不会转化成订单。
func (e *Engine) decide(ctx context.Context, snap Snapshot, policy riskpolicy.Policy, mult float64, model provider.Decider) decision.FinalDecision {
	raw, err := model.Decide(ctx, systemPrompt, BuildUserPrompt(snap, e.cfg.Bar))
	if err != nil {
		return e.builder.BuildSafeHold(e.cfg.Instrument, fmt.Sprintf("模型调用失败: %v", err))
	}
	logger.Debugf("[%s] 模型原始响应:\n%s", e.cfg.Instrument, jsonutil.Pretty(raw))
	parsed, err := decision.ParseRaw(raw)
	if err != nil {
		logger.Warnf("[%s] 模型响应无法解析，原文片段: %s", e.cfg.Instrument, text.Truncate(raw, 200))
		return e.builder.BuildSafeHold(e.cfg.Instrument, fmt.Sprintf("模型响应解析失败: %v", err))
	}
	return e.builder.Build(parsed, decision.Context{
		Instrument:         e.cfg.Instrument,
		Price:              snap.Ticker.Last,
		Balance:            snap.Balance,
		Position:           snap.Position,
		Stage:              snap.Stage,
		Policy:             policy,
		Assessment:         snap.Assessment,
		ContractMultiplier: mult,
	})
}

// execute 把最终决策转成交易所调用。执行失败只记日志，
// 下一周期会基于新鲜状态重新决策，不做同周期重试。
func (e *Engine) execute(ctx context.Context, fd decision.FinalDecision, pos types.Position, exch Exchange) error {
	switch fd.Action {
	case decision.ActionBuy, decision.ActionSell:
		side := types.SideLong
		if fd.Action == decision.ActionSell {
			side = types.SideShort
		}
		if err := exch.SetLeverage(ctx, fd.Instrument, fd.Leverage, side); err != nil {
			return err
		}
		return exch.PlaceMarketOrder(ctx, fd.Instrument, side, fd.Size, fd.StopLoss, fd.TakeProfit)
	case decision.ActionClose:
		return exch.ClosePosition(ctx, fd.Instrument, pos.Side)
	case decision.ActionUpdateTPSL:
		return exch.UpdateStopTakeProfit(ctx, fd.Instrument, pos.Side, pos.Size, fd.StopLoss, fd.TakeProfit)
	default:
		return nil
	}
}

// contractMultiplier 合约乘数只取一次并缓存。
func (e *Engine) contractMultiplier(ctx context.Context, exch Exchange) (float64, error) {
	e.mu.RLock()
	cached := e.multiplier
	e.mu.RUnlock()
	if cached > 0 {
		return cached, nil
	}
	mult, err := exch.ContractMultiplier(ctx, e.cfg.Instrument)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	e.multiplier = mult
	e.mu.Unlock()
	return mult, nil
}
