package monitor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Endpoints 服务端支持的订阅端点
var Endpoints = map[string]string{
	"all":                 "Retrieve all event types",
	"tokens/new":          "New token events only",
	"tokens/new/detailed": "Detailed new token information",
	"tokens/graduated":    "Graduated token events",
	"trades/pump":         "Pump trading events",
	"trades/pumpswap":     "PumpSwap trading events",
}

// Config 监控端全量配置。viper 从 config/pumpwatch.yaml + 环境变量加载，
// CLI flag 可以再覆盖一层。
type Config struct {
	Server struct {
		URL      string `mapstructure:"url"`
		APIToken string `mapstructure:"api_token"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"server"`

	Stream struct {
		ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
		IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
		StableAfter    time.Duration `mapstructure:"stable_after"`
		BackoffBase    time.Duration `mapstructure:"backoff_base"`
		BackoffMax     time.Duration `mapstructure:"backoff_max"`
		ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
	} `mapstructure:"stream"`

	Health struct {
		Interval      time.Duration `mapstructure:"interval"`
		Timeout       time.Duration `mapstructure:"timeout"`
		FailThreshold int           `mapstructure:"fail_threshold"`
	} `mapstructure:"health"`

	Display struct {
		Quiet         bool          `mapstructure:"quiet"`
		ShowRaw       bool          `mapstructure:"show_raw"`
		ShowDetailed  bool          `mapstructure:"show_detailed"`
		StatsInterval time.Duration `mapstructure:"stats_interval"`
		Debug         bool          `mapstructure:"debug"`
	} `mapstructure:"display"`

	Output struct {
		SaveToFile bool   `mapstructure:"save_to_file"`
		File       string `mapstructure:"file"`
	} `mapstructure:"output"`

	Nats struct {
		Enabled bool   `mapstructure:"enabled"`
		URL     string `mapstructure:"url"`
	} `mapstructure:"nats"`

	Redis struct {
		Enabled   bool   `mapstructure:"enabled"`
		Addr      string `mapstructure:"addr"`
		Password  string `mapstructure:"password"`
		DB        int    `mapstructure:"db"`
		StreamKey string `mapstructure:"stream_key"`
		MaxLen    int64  `mapstructure:"max_len"`
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

// DefaultConfig 所有阈值都是产品参数，不是硬编码约束，按需改配置
func DefaultConfig() *Config {
	c := &Config{}
	c.Server.Endpoint = "all"

	c.Stream.ConnectTimeout = 15 * time.Second
	c.Stream.IdleTimeout = 180 * time.Second
	c.Stream.StableAfter = 30 * time.Second
	c.Stream.BackoffBase = 1 * time.Second
	c.Stream.BackoffMax = 60 * time.Second
	c.Stream.ShutdownGrace = 5 * time.Second

	c.Health.Interval = 240 * time.Second
	c.Health.Timeout = 5 * time.Second
	c.Health.FailThreshold = 2

	c.Display.ShowDetailed = true
	c.Display.StatsInterval = 60 * time.Second

	c.Output.SaveToFile = true

	c.Nats.URL = "nats://127.0.0.1:4222"
	c.Redis.Addr = "127.0.0.1:6379"
	c.Redis.StreamKey = "pumpwatch:events"
	c.Redis.MaxLen = 100_000

	c.Metrics.Addr = ":9100"
	return c
}

// Normalize 补默认值、推导派生字段。
func (c *Config) Normalize() {
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")
	if c.Output.File == "" {
		safe := strings.ReplaceAll(c.Server.Endpoint, "/", "_")
		c.Output.File = fmt.Sprintf("pump_data_%s.jsonl", safe)
	}
}

// Validate 硬错误：带这种配置跑不起来，启动期直接退出。
// 这是整个进程唯一允许 fatal 的路径。
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.APIToken) == "" {
		errs = append(errs, errors.New("server.api_token is empty, configure your API token"))
	}
	if strings.TrimSpace(c.Server.URL) == "" {
		errs = append(errs, errors.New("server.url is empty"))
	}
	if _, ok := Endpoints[c.Server.Endpoint]; !ok {
		errs = append(errs, fmt.Errorf("invalid endpoint %q, valid: %s",
			c.Server.Endpoint, strings.Join(EndpointNames(), ", ")))
	}
	if c.Stream.BackoffMax < c.Stream.BackoffBase {
		errs = append(errs, errors.New("stream.backoff_max must be >= stream.backoff_base"))
	}

	return errors.Join(errs...)
}

// Warnings 软问题：能跑，但值得提醒。
func (c *Config) Warnings() []string {
	var warns []string
	if c.Server.URL != "" && !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
		warns = append(warns, "server.url should start with http:// or https://")
	}
	if c.Stream.ConnectTimeout < 5*time.Second {
		warns = append(warns, "stream.connect_timeout is low, recommended minimum is 5s")
	}
	return warns
}

// EventsURL SSE 长连接地址：{server}/events/{endpoint}
func (c *Config) EventsURL() string {
	return c.Server.URL + "/events/" + c.Server.Endpoint
}

// HealthURL 带外健康检查地址
func (c *Config) HealthURL() string {
	return c.Server.URL + "/health"
}

func EndpointNames() []string {
	names := make([]string, 0, len(Endpoints))
	for name := range Endpoints {
		names = append(names, name)
	}
	return names
}
