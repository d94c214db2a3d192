package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Database DatabaseConfig          `mapstructure:"database"`
	Redis    RedisConfig             `mapstructure:"redis"`
	JWT      JWTConfig               `mapstructure:"jwt"`
	Price    PriceConfig             `mapstructure:"price"`
	Faucets  map[string]FaucetConfig `mapstructure:"faucets"`
	Log      LogConfig               `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// PriceConfig configures the price oracle: the reference asset, the primary
// and fallback upstream sources, and the staleness policy.
type PriceConfig struct {
	Asset            string        `mapstructure:"asset"`  // upstream asset id, e.g. "ethereum"
	Symbol           string        `mapstructure:"symbol"` // e.g. "ETH"
	PrimaryURL       string        `mapstructure:"primary_url"`
	FallbackURL      string        `mapstructure:"fallback_url"`
	FallbackAPIKey   string        `mapstructure:"fallback_api_key"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	MaxQuoteAge      time.Duration `mapstructure:"max_quote_age"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	USDTarget        float64       `mapstructure:"usd_target"` // coffee-equivalent claim target
}

// FaucetConfig configures a single external faucet integration.
type FaucetConfig struct {
	ID              int           `mapstructure:"id"`
	Name            string        `mapstructure:"name"`
	Symbol          string        `mapstructure:"symbol"`
	Endpoint        string        `mapstructure:"endpoint"`
	APIKey          string        `mapstructure:"api_key"`
	CooldownSeconds int           `mapstructure:"cooldown_seconds"`
	ValuationMode   string        `mapstructure:"valuation_mode"` // fixed_amount, usd_target_derived
	FixedAmount     float64       `mapstructure:"fixed_amount"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
	RatePerMinute   int           `mapstructure:"rate_per_minute"` // outbound call budget
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CFG_ (Crypto Faucet Gateway).
// Nested keys use underscore: CFG_DATABASE_HOST, CFG_PRICE_PRIMARY_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "faucet_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "crypto-faucet-gateway")
	v.SetDefault("price.asset", "ethereum")
	v.SetDefault("price.symbol", "ETH")
	v.SetDefault("price.primary_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.fallback_url", "https://pro-api.coinmarketcap.com/v1")
	v.SetDefault("price.fallback_api_key", "")
	v.SetDefault("price.refresh_interval", "60s")
	v.SetDefault("price.fetch_timeout", "5s")
	v.SetDefault("price.max_quote_age", "5m")
	v.SetDefault("price.failure_threshold", 5)
	v.SetDefault("price.usd_target", 3.50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	setFaucetDefaults(v)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CFG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CFG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setFaucetDefaults registers the built-in faucet catalog. Any field can be
// overridden per faucet via file or env (CFG_FAUCETS_BITCOIN_API_KEY etc.).
func setFaucetDefaults(v *viper.Viper) {
	type faucetDefault struct {
		id       int
		name     string
		symbol   string
		endpoint string
		mode     string
		amount   float64
		cooldown int
	}

	defaults := []struct {
		key string
		faucetDefault
	}{
		{"bitcoin", faucetDefault{1, "FreeBitco.in", "BTC", "https://freebitco.in/api/v1/claim", "fixed_amount", 0.00001000, 3600}},
		{"ethereum", faucetDefault{2, "Free-Ethereum.io", "ETH", "https://free-ethereum.io/api/claim", "usd_target_derived", 0, 3600}},
		{"litecoin", faucetDefault{3, "FreeLitecoin.com", "LTC", "https://freelitecoin.com/api/claim", "fixed_amount", 0.00250000, 3600}},
		{"dogecoin", faucetDefault{4, "FreeDoge.co.in", "DOGE", "https://freedoge.co.in/api/claim", "fixed_amount", 0.50000000, 3600}},
		{"tron", faucetDefault{5, "FreeTron.io", "TRX", "https://freetron.io/api/claim", "fixed_amount", 1.00000000, 7200}},
	}

	for _, d := range defaults {
		prefix := "faucets." + d.key + "."
		v.SetDefault(prefix+"id", d.id)
		v.SetDefault(prefix+"name", d.name)
		v.SetDefault(prefix+"symbol", d.symbol)
		v.SetDefault(prefix+"endpoint", d.endpoint)
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"cooldown_seconds", d.cooldown)
		v.SetDefault(prefix+"valuation_mode", d.mode)
		v.SetDefault(prefix+"fixed_amount", d.amount)
		v.SetDefault(prefix+"call_timeout", "10s")
		v.SetDefault(prefix+"rate_per_minute", 30)
	}
}
