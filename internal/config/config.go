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
	Cron     CronConfig     `mapstructure:"cron"`
	Bidding  BiddingConfig  `mapstructure:"bidding"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
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

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Lifecycle string `mapstructure:"lifecycle"`
}

// BiddingConfig holds the defaults applied to auctions whose anti-snipe
// knobs were left unset at listing time.
type BiddingConfig struct {
	AutoExtendEnabled       bool `mapstructure:"auto_extend_enabled"`
	AutoExtendMinutes       int  `mapstructure:"auto_extend_minutes"`
	AutoExtendThresholdMins int  `mapstructure:"auto_extend_threshold_minutes"`
	MaxExtensions           int  `mapstructure:"max_extensions"`
}

type ApprovalConfig struct {
	DeadlineDays int `mapstructure:"deadline_days"`
}

type NotifyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RealtimeConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TB")
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
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.lifecycle", "@every 15s")

	v.SetDefault("bidding.auto_extend_enabled", true)
	v.SetDefault("bidding.auto_extend_minutes", 5)
	v.SetDefault("bidding.auto_extend_threshold_minutes", 2)
	v.SetDefault("bidding.max_extensions", 3)

	v.SetDefault("approval.deadline_days", 7)

	v.SetDefault("notify.base_url", "")
	v.SetDefault("notify.api_key", "")
	v.SetDefault("notify.timeout", "5s")

	v.SetDefault("realtime.subscriber_buffer", 32)

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
