package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jialazhu/okx1204/internal/app"
	okxcfg "github.com/jialazhu/okx1204/internal/config"
	"github.com/jialazhu/okx1204/internal/logger"
)

func main() {
	// .env 仅用于本地开发，缺失时静默忽略
	_ = godotenv.Load()

	cfgPath := os.Getenv("OKX1204_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := okxcfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（合约=%s，模拟盘=%v）", cfg.Trading.Instrument, cfg.OKX.Simulated)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}
