package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Market   MarketConfig   `mapstructure:"market"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Coins    CoinsConfig    `mapstructure:"coins"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type SweepConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	Concurrency     int           `mapstructure:"concurrency"`
	SignalRetention time.Duration `mapstructure:"signal_retention"`
}

// MarketConfig configures the candle/ticker gateway. Hosts are equivalent
// mirrors tried in order until one answers.
type MarketConfig struct {
	Hosts          []string      `mapstructure:"hosts"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LookbackMargin int           `mapstructure:"lookback_margin"`
	MaxCandles     int           `mapstructure:"max_candles"`
}

type ExchangeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	DryRun  bool          `mapstructure:"dry_run"`
}

type CoinsConfig struct {
	StartingBalance int64 `mapstructure:"starting_balance"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", "1m")
	v.SetDefault("sweep.concurrency", 8)
	v.SetDefault("sweep.signal_retention", "168h")

	v.SetDefault("market.hosts", []string{
		"https://api.binance.com",
		"https://api1.binance.com",
		"https://api2.binance.com",
		"https://api3.binance.com",
	})
	v.SetDefault("market.timeout", "15s")
	v.SetDefault("market.lookback_margin", 50)
	v.SetDefault("market.max_candles", 500)

	v.SetDefault("exchange.base_url", "https://api.binance.com")
	v.SetDefault("exchange.timeout", "15s")
	v.SetDefault("exchange.dry_run", true)

	v.SetDefault("coins.starting_balance", 10)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
