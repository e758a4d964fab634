package config

import (
	"finnhub-stock-bot/internal/alert"
	"finnhub-stock-bot/internal/types"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"strings"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	APIKey       string         `mapstructure:"api_key"`
	BaseURL      string         `mapstructure:"base_url"`
	Symbols      []SymbolConfig `mapstructure:"-"`
	PollInterval time.Duration  `mapstructure:"poll_interval"`
	FetchTimeout time.Duration  `mapstructure:"fetch_timeout"`
	HTTPPort     int            `mapstructure:"http_port"`
	DatabasePath string         `mapstructure:"database_path"`
	Debug        bool           `mapstructure:"debug"`
	Lang         string         `mapstructure:"lang"`
	LocalesDir   string         `mapstructure:"locales_dir"`
	LogFile      string         `mapstructure:"log_file"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
	AlertWindow  WindowConfig   `mapstructure:"alert_window"`
}

// SymbolConfig is one entry of the symbols list.
type SymbolConfig struct {
	Symbol           string  `mapstructure:"symbol"`
	DisplayName      string  `mapstructure:"display_name"`
	Currency         string  `mapstructure:"currency"`
	RisingThreshold  float64 `mapstructure:"rising_threshold"`
	FallingThreshold float64 `mapstructure:"falling_threshold"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
	Commands bool   `mapstructure:"commands"`
}

// WindowConfig limits alerting to a daily session.
type WindowConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Open        string        `mapstructure:"open"`
	Close       string        `mapstructure:"close"`
	Timezone    string        `mapstructure:"timezone"`
	MaxQuoteAge time.Duration `mapstructure:"max_quote_age"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://finnhub.io/api/v1")
	v.SetDefault("poll_interval", 5*time.Minute)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("http_port", 8080)
	v.SetDefault("database_path", "data/finnhub.db")
	v.SetDefault("debug", false)
	v.SetDefault("lang", "en")
	v.SetDefault("locales_dir", "locales")
	v.SetDefault("log_file", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.commands", false)
	v.SetDefault("alert_window.enabled", false)
	v.SetDefault("alert_window.open", "09:30")
	v.SetDefault("alert_window.close", "16:00")
	v.SetDefault("alert_window.timezone", "America/New_York")
	v.SetDefault("alert_window.max_quote_age", time.Hour)
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("api_key", "FINNHUB_API_KEY")
	_ = v.BindEnv("base_url", "FINNHUB_BASE_URL")
	_ = v.BindEnv("http_port", "HTTP_PORT")
	_ = v.BindEnv("database_path", "DATABASE_PATH")
	_ = v.BindEnv("debug", "DEBUG")
	_ = v.BindEnv("lang", "BOT_LANG")
	_ = v.BindEnv("log_file", "LOG_FILE")
	_ = v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
}

// Load reads the configuration from path (or ./config.yaml when path is
// empty), the environment and an optional .env file, then validates it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
		log.Debug("No config file found, using defaults and environment")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	symbols, err := decodeSymbols(v.Get("symbols"))
	if err != nil {
		return nil, err
	}
	cfg.Symbols = symbols

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

// decodeSymbols is strict: unknown keys in a symbol entry are an error.
func decodeSymbols(raw any) ([]SymbolConfig, error) {
	var symbols []SymbolConfig
	if raw == nil {
		return symbols, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &symbols,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating symbols decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decoding symbols")
	}
	return symbols, nil
}

// Validate checks the configuration and fills symbol defaults.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.FetchTimeout <= 0 {
		return errors.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return errors.Errorf("http_port %d is out of range", c.HTTPPort)
	}
	if len(c.Symbols) > 0 && strings.TrimSpace(c.APIKey) == "" {
		return errors.New("api_key is required (set FINNHUB_API_KEY)")
	}

	seen := make(map[string]string, len(c.Symbols))
	for i := range c.Symbols {
		s := &c.Symbols[i]
		s.Symbol = strings.TrimSpace(s.Symbol)
		if s.Symbol == "" {
			return errors.Errorf("symbols[%d]: symbol is required", i)
		}
		if s.RisingThreshold <= 0 {
			return errors.Errorf("symbols[%d] %s: rising_threshold must be positive", i, s.Symbol)
		}
		if s.FallingThreshold <= 0 {
			return errors.Errorf("symbols[%d] %s: falling_threshold must be positive", i, s.Symbol)
		}
		if s.Currency == "" {
			s.Currency = types.DefaultCurrency
		}
		id := s.toSymbol().EntityID()
		if other, dup := seen[id]; dup {
			return errors.Errorf("symbols %s and %s share the entity id %s", other, s.Symbol, id)
		}
		seen[id] = s.Symbol
	}

	if _, err := c.Window(); err != nil {
		return err
	}
	return nil
}

func (s SymbolConfig) toSymbol() types.Symbol {
	return types.Symbol{
		Ticker:           s.Symbol,
		DisplayName:      s.DisplayName,
		Currency:         s.Currency,
		RisingThreshold:  s.RisingThreshold,
		FallingThreshold: s.FallingThreshold,
	}
}

// TrackedSymbols returns the configured symbols in configuration order.
func (c *Config) TrackedSymbols() []types.Symbol {
	out := make([]types.Symbol, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		out = append(out, s.toSymbol())
	}
	return out
}

// Window returns the alert window. A disabled window allows everything.
func (c *Config) Window() (alert.Window, error) {
	if !c.AlertWindow.Enabled {
		return alert.Window{}, nil
	}
	w := c.AlertWindow
	return alert.ParseWindow(w.Open, w.Close, w.Timezone, w.MaxQuoteAge)
}
