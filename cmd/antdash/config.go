package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/antdash/antdash/internal/model"
)

// Config holds the full dashboard configuration.
type Config struct {
	Globs []string `mapstructure:"globs"`

	TimelineSteps  int           `mapstructure:"timeline-steps"`
	LinesMax       int           `mapstructure:"lines-max"`
	TickInterval   time.Duration `mapstructure:"tick-interval"`
	RedrawInterval time.Duration `mapstructure:"redraw-interval"`
	QueueSize      int           `mapstructure:"queue-size"`

	IgnoreExisting     bool          `mapstructure:"ignore-existing"`
	GlobScanInterval   time.Duration `mapstructure:"glob-scan-interval"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint-interval"`

	CurrencySymbol       string        `mapstructure:"currency-symbol"`
	CurrencyAPIName      string        `mapstructure:"currency-apiname"`
	CurrencyTokenRate    float64       `mapstructure:"currency-token-rate"`
	CurrencyPollInterval time.Duration `mapstructure:"currency-poll-interval"`
	CoinGeckoKey         string        `mapstructure:"coingecko-key"`
	CoinMarketCapKey     string        `mapstructure:"coinmarketcap-key"`
	CoinID               string        `mapstructure:"coin-id"`
	CoinTicker           string        `mapstructure:"coin-ticker"`
	Currency             string        `mapstructure:"currency"`

	APIEnabled bool   `mapstructure:"api-enabled"`
	APIAddr    string `mapstructure:"api-addr"`
}

func loadConfig(configPath string) (Config, error) {
	var cfg Config

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ANTDASH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("timeline-steps", model.DefaultTimelineSteps)
	v.SetDefault("lines-max", model.DefaultLinesMax)
	v.SetDefault("tick-interval", model.DefaultTickInterval)
	v.SetDefault("redraw-interval", model.DefaultRedrawInterval)
	v.SetDefault("queue-size", 0) // pipeline default
	v.SetDefault("ignore-existing", false)
	v.SetDefault("glob-scan-interval", 30*time.Second)
	v.SetDefault("checkpoint-interval", time.Minute)
	v.SetDefault("currency-symbol", "$")
	v.SetDefault("currency-apiname", "")
	v.SetDefault("currency-token-rate", 0.0)
	v.SetDefault("currency-poll-interval", 2*time.Minute)
	v.SetDefault("coin-id", "autonomi")
	v.SetDefault("coin-ticker", "ANT")
	v.SetDefault("currency", "usd")
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-addr", "127.0.0.1:3000")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "antdash", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.TimelineSteps < model.MinTimelineSteps {
		return fmt.Errorf("timeline-steps must be at least %d, got %d", model.MinTimelineSteps, c.TimelineSteps)
	}
	if c.LinesMax < 1 {
		return fmt.Errorf("lines-max must be positive, got %d", c.LinesMax)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick-interval must be positive, got %s", c.TickInterval)
	}
	if c.RedrawInterval < c.TickInterval {
		return fmt.Errorf("redraw-interval %s must not be shorter than tick-interval %s", c.RedrawInterval, c.TickInterval)
	}
	switch c.CurrencyAPIName {
	case "", "coingecko", "coinmarketcap":
	default:
		return fmt.Errorf("currency-apiname must be coingecko or coinmarketcap, got %q", c.CurrencyAPIName)
	}
	if c.CurrencyAPIName == "coinmarketcap" && c.CoinMarketCapKey == "" {
		return errors.New("coinmarketcap requires coinmarketcap-key")
	}
	return nil
}
