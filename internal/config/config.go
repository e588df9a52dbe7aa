// Package config 负责配置加载、默认值、校验与运行期的热替换。
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置并应用默认值与校验。
// 敏感字段按 OKX1204_ 前缀的环境变量覆盖，例如 OKX1204_OKX_API_KEY。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OKX1204")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
				return nil, fmt.Errorf("读取配置文件失败 (%s): %w", path, err)
			}
		}
	}
	bindSecretEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AutomaticEnv 对嵌套键不生效，敏感键显式绑定。
func bindSecretEnvs(v *viper.Viper) {
	for _, key := range []string{
		"okx.api_key", "okx.secret_key", "okx.passphrase", "ai.api_key",
	} {
		_ = v.BindEnv(key)
	}
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9980"
	}
	if c.App.LogBuffer <= 0 {
		c.App.LogBuffer = 500
	}
	if c.Trading.Instrument == "" {
		c.Trading.Instrument = "ETH-USDT-SWAP"
	}
	if c.Trading.Bar == "" {
		c.Trading.Bar = "15m"
	}
	if c.Trading.CandleLimit <= 0 {
		c.Trading.CandleLimit = 100
	}
	if c.Trading.PollIntervalSeconds <= 0 {
		c.Trading.PollIntervalSeconds = 5
	}
	if c.Trading.AnalysisIntervalSeconds <= 0 {
		c.Trading.AnalysisIntervalSeconds = 180
	}
	if c.Trading.HistoryLimit <= 0 {
		c.Trading.HistoryLimit = 200
	}
	if c.AI.Model == "" {
		c.AI.Model = "deepseek-chat"
	}
}

func (c *Config) validate() error {
	if !strings.HasSuffix(c.Trading.Instrument, "-SWAP") {
		return fmt.Errorf("trading.instrument 必须是永续合约（-SWAP 后缀）: %s", c.Trading.Instrument)
	}
	if c.Trading.PollIntervalSeconds > c.Trading.AnalysisIntervalSeconds {
		return fmt.Errorf("poll_interval_seconds (%d) 不能大于 analysis_interval_seconds (%d)",
			c.Trading.PollIntervalSeconds, c.Trading.AnalysisIntervalSeconds)
	}
	return nil
}
