package config

import "time"

// Config 主配置载体。敏感字段（密钥、口令）支持环境变量覆盖，
// 对外展示一律经过掩码。
type Config struct {
	App     AppConfig     `yaml:"app" mapstructure:"app"`
	OKX     OKXConfig     `yaml:"okx" mapstructure:"okx"`
	Trading TradingConfig `yaml:"trading" mapstructure:"trading"`
	AI      AIConfig      `yaml:"ai" mapstructure:"ai"`
}

type AppConfig struct {
	LogLevel       string `yaml:"log_level" mapstructure:"log_level"`
	HTTPAddr       string `yaml:"http_addr" mapstructure:"http_addr"`
	RiskPolicyFile string `yaml:"risk_policy_file" mapstructure:"risk_policy_file"`
	LogBuffer      int    `yaml:"log_buffer" mapstructure:"log_buffer"`
}

type OKXConfig struct {
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	Passphrase     string `yaml:"passphrase" mapstructure:"passphrase"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	Simulated      bool   `yaml:"simulated" mapstructure:"simulated"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

func (o OKXConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

type TradingConfig struct {
	Instrument              string `yaml:"instrument" mapstructure:"instrument"`
	Bar                     string `yaml:"bar" mapstructure:"bar"`
	CandleLimit             int    `yaml:"candle_limit" mapstructure:"candle_limit"`
	PollIntervalSeconds     int    `yaml:"poll_interval_seconds" mapstructure:"poll_interval_seconds"`
	AnalysisIntervalSeconds int    `yaml:"analysis_interval_seconds" mapstructure:"analysis_interval_seconds"`
	HistoryLimit            int    `yaml:"history_limit" mapstructure:"history_limit"`
}

func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

func (t TradingConfig) AnalysisInterval() time.Duration {
	return time.Duration(t.AnalysisIntervalSeconds) * time.Second
}

type AIConfig struct {
	APIURL          string `yaml:"api_url" mapstructure:"api_url"`
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	Model           string `yaml:"model" mapstructure:"model"`
	DeadlineSeconds int    `yaml:"deadline_seconds" mapstructure:"deadline_seconds"`
	MaxRetries      int    `yaml:"max_retries" mapstructure:"max_retries"`
}

func (a AIConfig) Deadline() time.Duration {
	if a.DeadlineSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(a.DeadlineSeconds) * time.Second
}
