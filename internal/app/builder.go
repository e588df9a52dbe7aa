package app

import (
	"context"
	"fmt"

	"github.com/jialazhu/okx1204/internal/config"
	"github.com/jialazhu/okx1204/internal/decision"
	"github.com/jialazhu/okx1204/internal/gateway/okx"
	"github.com/jialazhu/okx1204/internal/gateway/provider"
	"github.com/jialazhu/okx1204/internal/logger"
	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/trader"
	livehttp "github.com/jialazhu/okx1204/internal/transport/http/live"
)

// AppBuilder 按依赖顺序装配应用组件。
type AppBuilder struct {
	cfg *config.Config
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// Build 完整装配：日志环→风险策略→网关→引擎→HTTP。
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	ring := logger.NewRing(cfg.App.LogBuffer)
	logger.SetRing(ring)

	policies, err := riskpolicy.NewRegistry(cfg.App.RiskPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("加载风险策略失败: %w", err)
	}

	manager := config.NewManager(*cfg)
	exch := buildExchange(cfg.OKX)
	model := buildModel(cfg.AI)

	state := trader.NewState(cfg.Trading.Instrument)
	builder := decision.NewBuilder(cfg.Trading.HistoryLimit)
	engine := trader.NewEngine(trader.Config{
		Instrument:       cfg.Trading.Instrument,
		Bar:              cfg.Trading.Bar,
		CandleLimit:      cfg.Trading.CandleLimit,
		PollInterval:     cfg.Trading.PollInterval(),
		AnalysisInterval: cfg.Trading.AnalysisInterval(),
	}, exch, model, policies, builder, state)

	// 凭据热更新后重建依赖密钥的客户端
	manager.OnChange(func(updated config.Config) {
		engine.ReplaceGateways(buildExchange(updated.OKX), buildModel(updated.AI))
	})

	liveHTTP := livehttp.NewServer(livehttp.ServerConfig{
		Addr: cfg.App.HTTPAddr,
		Router: &livehttp.Router{
			State:     state,
			Engine:    engine,
			Decisions: builder,
			Logs:      ring,
			Configs:   manager,
		},
	})

	return &App{cfg: cfg, engine: engine, liveHTTP: liveHTTP}, nil
}

func buildExchange(cfg config.OKXConfig) *okx.Client {
	return okx.NewClient(okx.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		Passphrase: cfg.Passphrase,
		BaseURL:    cfg.BaseURL,
		Simulated:  cfg.Simulated,
		Timeout:    cfg.Timeout(),
	})
}

func buildModel(cfg config.AIConfig) *provider.OpenAIChat {
	return provider.NewOpenAIChat(provider.Config{
		BaseURL:    cfg.APIURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Deadline:   cfg.Deadline(),
		MaxRetries: cfg.MaxRetries,
	})
}
