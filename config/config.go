package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all terminal configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	AES         AESConfig         `mapstructure:"aes"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Tag         TagConfig         `mapstructure:"tag"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Generations GenerationsConfig `mapstructure:"generations"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Mode       string `mapstructure:"mode"` // debug, release, test
	TerminalID string `mapstructure:"terminal_id"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
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
	Enabled  bool   `mapstructure:"enabled"`
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

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

// AuthConfig covers operator login. Operators listed here are used when
// PostgreSQL is disabled.
type AuthConfig struct {
	LoginRateLimit  int64            `mapstructure:"login_rate_limit"`
	LoginRateWindow time.Duration    `mapstructure:"login_rate_window"`
	Operators       []OperatorConfig `mapstructure:"operators"`
}

type OperatorConfig struct {
	Username string `mapstructure:"username"`
	PINHash  string `mapstructure:"pin_hash"` // argon2id encoded
	Role     string `mapstructure:"role"`     // CASHIER, SUPERVISOR
}

type TagConfig struct {
	MasterKey                string        `mapstructure:"master_key"` // hex, at least 16 bytes
	ReadTimeout              time.Duration `mapstructure:"read_timeout"`
	WriteTimeout             time.Duration `mapstructure:"write_timeout"`
	Capacity                 int           `mapstructure:"capacity"`
	VerifyWrite              bool          `mapstructure:"verify_write"`
	RechargeConfirmThreshold uint64        `mapstructure:"recharge_confirm_threshold"`
	Device                   string        `mapstructure:"device"` // memory, file
	DevicePath               string        `mapstructure:"device_path"`
}

// MasterKeyBytes decodes the hex master key.
func (t TagConfig) MasterKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(t.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("decoding tag master key: %w", err)
	}
	return key, nil
}

type CatalogConfig struct {
	Source   string          `mapstructure:"source"` // config, postgres
	Products []ProductConfig `mapstructure:"products"`
}

type ProductConfig struct {
	ID    uint16 `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Price uint32 `mapstructure:"price"`
}

type GenerationsConfig struct {
	Backend   string        `mapstructure:"backend"` // memory, redis
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type NotifyConfig struct {
	Journal bool          `mapstructure:"journal"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
}

type WebhookConfig struct {
	URL     string          `mapstructure:"url"`
	Secret  string          `mapstructure:"secret"`
	Timeout time.Duration   `mapstructure:"timeout"`
	Retries []time.Duration `mapstructure:"retries"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: TWT_ (Tag Wallet Terminal).
// Nested keys use underscore: TWT_TAG_MASTER_KEY, TWT_REDIS_HOST, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.terminal_id", "")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "tag_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jwt.issuer", "tag-wallet")
	v.SetDefault("aes.key", "")
	v.SetDefault("auth.login_rate_limit", 5)
	v.SetDefault("auth.login_rate_window", "1m")
	v.SetDefault("tag.master_key", "")
	v.SetDefault("tag.read_timeout", "2s")
	v.SetDefault("tag.write_timeout", "2s")
	v.SetDefault("tag.capacity", 888) // NTAG216 user memory
	v.SetDefault("tag.verify_write", true)
	v.SetDefault("tag.recharge_confirm_threshold", 50000)
	v.SetDefault("tag.device", "memory")
	v.SetDefault("tag.device_path", "tag.bin")
	v.SetDefault("catalog.source", "config")
	v.SetDefault("generations.backend", "memory")
	v.SetDefault("generations.key_prefix", "twt:gen:")
	v.SetDefault("generations.ttl", "2160h")
	v.SetDefault("notify.journal", true)
	v.SetDefault("notify.webhook.timeout", "5s")
	v.SetDefault("notify.webhook.retries", []string{"15s", "1m", "5m"})
	v.SetDefault("notify.kafka.topic", "tag-wallet.outcomes")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: TWT_TAG_MASTER_KEY -> tag.master_key
	v.SetEnvPrefix("TWT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
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

// Validate checks the settings the terminal cannot start without.
func (c *Config) Validate() error {
	var errs []error

	key, err := c.Tag.MasterKeyBytes()
	switch {
	case err != nil:
		errs = append(errs, err)
	case len(key) < 16:
		errs = append(errs, fmt.Errorf("tag.master_key must be at least 16 bytes, got %d", len(key)))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Tag.ReadTimeout <= 0 || c.Tag.WriteTimeout <= 0 {
		errs = append(errs, errors.New("tag.read_timeout and tag.write_timeout must be positive"))
	}
	switch c.Tag.Device {
	case "memory", "file":
	default:
		errs = append(errs, fmt.Errorf("tag.device %q: want memory or file", c.Tag.Device))
	}
	switch c.Catalog.Source {
	case "config":
	case "postgres":
		if !c.Database.Enabled {
			errs = append(errs, errors.New("catalog.source postgres requires database.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source %q: want config or postgres", c.Catalog.Source))
	}
	switch c.Generations.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, errors.New("generations.backend redis requires redis.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("generations.backend %q: want memory or redis", c.Generations.Backend))
	}
	if c.Database.Enabled && c.Notify.Journal && c.AES.Key == "" {
		errs = append(errs, errors.New("aes.key is required for the session journal"))
	}
	if c.Notify.Webhook.URL != "" && c.Notify.Webhook.Secret == "" {
		errs = append(errs, errors.New("notify.webhook.secret is required with notify.webhook.url"))
	}
	return errors.Join(errs...)
}
