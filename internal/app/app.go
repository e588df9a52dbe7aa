// Package app 负责应用级编排：配置→依赖装配→启动引擎与 HTTP 服务。
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	brcfg "github.com/jialazhu/okx1204/internal/config"
	"github.com/jialazhu/okx1204/internal/logger"
	"github.com/jialazhu/okx1204/internal/trader"
	livehttp "github.com/jialazhu/okx1204/internal/transport/http/live"
)

// App 应用对象：交易引擎 + 状态查询 HTTP 服务。
type App struct {
	cfg      *brcfg.Config
	engine   *trader.Engine
	liveHTTP *livehttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 并行启动引擎轮询循环与 HTTP 服务，任一失败即整体退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.liveHTTP.Run(ctx); err != nil && err != context.Canceled {
			return fmt.Errorf("live http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := a.engine.Run(ctx); err != nil && err != context.Canceled {
			return fmt.Errorf("engine error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Engine 暴露引擎实例（测试与回放用）。
func (a *App) Engine() *trader.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}
