// Package config handles application configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"

	"github.com/raykavin/alphabot/pkg/core"
)

// Constants for configuration
const (
	DefaultConfigName  = "alphabot"
	DefaultStoragePath = "./alphabot.db"
	DefaultLedgerPath  = "./billing.db"
	DefaultAdminAddr   = ":8080"
	EnvPrefix          = "ALPHABOT"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Telegram       TelegramConfig      `mapstructure:"telegram"`
	Operators      []int64             `mapstructure:"operators"`
	BlockedUsers   []int64             `mapstructure:"blocked_users"`
	BlockedRooms   []int64             `mapstructure:"blocked_rooms"`
	Store          StoreConfig         `mapstructure:"store"`
	Billing        BillingConfig       `mapstructure:"billing"`
	Limits         LimitsConfig        `mapstructure:"limits"`
	Weights        map[string]int      `mapstructure:"weights"`
	Queues         map[string][]string `mapstructure:"queues"`
	ConfirmTimeout string              `mapstructure:"confirm_timeout"`
	Paper          PaperConfig         `mapstructure:"paper"`
	Alerts         AlertsConfig        `mapstructure:"alerts"`
	Providers      ProvidersConfig     `mapstructure:"providers"`
	Admin          AdminConfig         `mapstructure:"admin"`
	Tips           bool                `mapstructure:"tips"`
}

// TelegramConfig holds Telegram transport configuration
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// StoreConfig selects the document store backend: bunt or sqlite.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// BillingConfig holds the usage reporting endpoint and its local ledger.
type BillingConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Timeout        string `mapstructure:"timeout"`
	Ledger         string `mapstructure:"ledger"`
	PresetQuantity int    `mapstructure:"preset_quantity"`
	AlertQuantity  int    `mapstructure:"alert_quantity"`
	TradeQuantity  int    `mapstructure:"trade_quantity"`
}

type LimitsConfig struct {
	Free   int    `mapstructure:"free"`
	Pro    int    `mapstructure:"pro"`
	Window string `mapstructure:"window"`
}

type PaperConfig struct {
	ResetCooldown string                   `mapstructure:"reset_cooldown"`
	SweepInterval string                   `mapstructure:"sweep_interval"`
	Exchanges     []string                 `mapstructure:"exchanges"`
	Balances      map[string]BalanceConfig `mapstructure:"balances"`
}

// BalanceConfig is the starting balance of one paper exchange.
type BalanceConfig struct {
	Asset    string  `mapstructure:"asset"`
	Amount   float64 `mapstructure:"amount"`
	Contract bool    `mapstructure:"contract"`
}

type AlertsConfig struct {
	MaxPerExchange int      `mapstructure:"max_per_exchange"`
	Exchanges      []string `mapstructure:"exchanges"`
}

// ProvidersConfig lists the market data platforms.
type ProvidersConfig struct {
	Binance     BinanceConfig      `mapstructure:"binance"`
	DataServers []DataServerConfig `mapstructure:"data_servers"`
}

// BinanceConfig holds Binance exchange configuration
type BinanceConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	APIKey    string  `mapstructure:"api_key"`
	SecretKey string  `mapstructure:"secret_key"`
	Rate      float64 `mapstructure:"rate"`
	Burst     int     `mapstructure:"burst"`
	IndexTTL  string  `mapstructure:"index_ttl"`
}

// DataServerConfig binds a platform name to a market data collaborator.
type DataServerConfig struct {
	Name      string `mapstructure:"name"`
	Endpoint  string `mapstructure:"endpoint"`
	Timeout   string `mapstructure:"timeout"`
	PerMinute int    `mapstructure:"per_minute"`
}

type AdminConfig struct {
	Address string `mapstructure:"address"`
}

func setDefaults(v *viper.Viper) {
	defaults := core.DefaultSettings()

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("store.backend", "bunt")
	v.SetDefault("store.path", DefaultStoragePath)
	v.SetDefault("billing.endpoint", "")
	v.SetDefault("billing.api_key", "")
	v.SetDefault("billing.timeout", "10s")
	v.SetDefault("billing.ledger", DefaultLedgerPath)
	v.SetDefault("billing.preset_quantity", defaults.Billing.PresetQuantity)
	v.SetDefault("billing.alert_quantity", defaults.Billing.AlertQuantity)
	v.SetDefault("billing.trade_quantity", defaults.Billing.TradeQuantity)
	v.SetDefault("limits.free", defaults.Limits.Free)
	v.SetDefault("limits.pro", defaults.Limits.Pro)
	v.SetDefault("limits.window", "1m")
	v.SetDefault("weights", defaults.Weights)
	v.SetDefault("queues", defaults.Queues)
	v.SetDefault("confirm_timeout", "60s")
	v.SetDefault("paper.reset_cooldown", "7d")
	v.SetDefault("paper.sweep_interval", "1m")
	v.SetDefault("paper.exchanges", defaults.Paper.Exchanges)
	v.SetDefault("alerts.max_per_exchange", defaults.Alerts.MaxPerExchange)
	v.SetDefault("alerts.exchanges", defaults.Alerts.Exchanges)
	v.SetDefault("providers.binance.enabled", true)
	v.SetDefault("providers.binance.api_key", "")
	v.SetDefault("providers.binance.secret_key", "")
	v.SetDefault("providers.binance.rate", 10)
	v.SetDefault("providers.binance.burst", 5)
	v.SetDefault("providers.binance.index_ttl", "1h")
	v.SetDefault("admin.address", DefaultAdminAddr)
	v.SetDefault("tips", defaults.Tips)
}

// Load reads the YAML file at path, or alphabot.yaml in the working
// directory when path is empty, and applies ALPHABOT_* environment
// overrides. A missing default file is not an error.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read configuration: %w", err)
		}
	}

	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return config, nil
}

// Duration parses value with day and week units; empty is zero.
func Duration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d, nil
}

// Settings converts the configuration into the runtime view of the bot.
func (c *AppConfig) Settings() (core.Settings, error) {
	window, err := Duration(c.Limits.Window)
	if err != nil {
		return core.Settings{}, fmt.Errorf("limits.window: %w", err)
	}
	confirmTimeout, err := Duration(c.ConfirmTimeout)
	if err != nil {
		return core.Settings{}, fmt.Errorf("confirm_timeout: %w", err)
	}
	cooldown, err := Duration(c.Paper.ResetCooldown)
	if err != nil {
		return core.Settings{}, fmt.Errorf("paper.reset_cooldown: %w", err)
	}

	balances := make(map[string]core.PaperBalance, len(c.Paper.Balances))
	for exchange, b := range c.Paper.Balances {
		if b.Asset == "" || b.Amount <= 0 {
			return core.Settings{}, fmt.Errorf("paper.balances.%s: asset and a positive amount are required", exchange)
		}
		balances[exchange] = core.PaperBalance{
			Asset:    strings.ToUpper(b.Asset),
			Amount:   decimal.NewFromFloat(b.Amount),
			Contract: b.Contract,
		}
	}

	return core.Settings{
		Telegram:     core.TelegramSettings{Enabled: c.Telegram.Enabled, Token: c.Telegram.Token},
		Operators:    c.Operators,
		BlockedUsers: c.BlockedUsers,
		BlockedRooms: c.BlockedRooms,
		Limits: core.LimitSettings{
			Free:   c.Limits.Free,
			Pro:    c.Limits.Pro,
			Window: window,
		},
		Weights:        c.Weights,
		Queues:         c.Queues,
		ConfirmTimeout: confirmTimeout,
		Paper: core.PaperSettings{
			ResetCooldown: cooldown,
			Exchanges:     c.Paper.Exchanges,
			Balances:      balances,
		},
		Alerts: core.AlertSettings{
			MaxPerExchange: c.Alerts.MaxPerExchange,
			Exchanges:      c.Alerts.Exchanges,
		},
		Billing: core.BillingSettings{
			PresetQuantity: c.Billing.PresetQuantity,
			AlertQuantity:  c.Billing.AlertQuantity,
			TradeQuantity:  c.Billing.TradeQuantity,
		},
		Tips: c.Tips,
	}, nil
}
