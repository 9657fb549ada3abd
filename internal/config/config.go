package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server     ServerConfig     `envconfig:"SERVER"`
	Database   DatabaseConfig   `envconfig:"DB"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Kafka      KafkaConfig      `envconfig:"KAFKA"`
	Settlement SettlementConfig `envconfig:"SETTLEMENT"`
	Payments   PaymentsConfig   `envconfig:"PAYMENT"`
	Log        LogConfig        `envconfig:"LOG"`
	Features   FeatureFlags     `envconfig:"FEATURE"`
}

type ServerConfig struct {
	Port            int           `split_words:"true" default:"8082"`
	ReadTimeout     time.Duration `split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	RequestTimeout  time.Duration `split_words:"true" default:"10s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

type DatabaseConfig struct {
	Driver          string        `split_words:"true" default:"postgres"`
	Host            string        `split_words:"true" default:"localhost"`
	Port            int           `split_words:"true" default:"5432"`
	User            string        `split_words:"true" default:"acme"`
	Password        string        `split_words:"true" default:"acme"`
	Name            string        `split_words:"true" default:"acme_marketplace"`
	SSLMode         string        `split_words:"true" default:"disable"`
	Path            string        `split_words:"true" default:"marketplace.db"`
	MaxOpenConns    int           `split_words:"true" default:"25"`
	MaxIdleConns    int           `split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
	AutoMigrate     bool          `split_words:"true" default:"false"`
}

// ConnectionString returns the driver-specific DSN.
func (d DatabaseConfig) ConnectionString() string {
	switch d.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
		cfg.DBName = d.Name
		cfg.ParseTime = true
		cfg.MultiStatements = true
		return cfg.FormatDSN()
	case DriverSQLite:
		return "file:" + d.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	default:
		return "host=" + d.Host +
			" port=" + strconv.Itoa(d.Port) +
			" user=" + d.User +
			" password=" + d.Password +
			" dbname=" + d.Name +
			" sslmode=" + d.SSLMode
	}
}

// MigrationURL returns the URL form golang-migrate expects for the driver.
func (d DatabaseConfig) MigrationURL() string {
	switch d.Driver {
	case DriverMySQL:
		return "mysql://" + d.ConnectionString()
	case DriverSQLite:
		return "sqlite://" + d.Path
	default:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:     "/" + d.Name,
			RawQuery: "sslmode=" + d.SSLMode,
		}
		return u.String()
	}
}

type RedisConfig struct {
	Host     string        `split_words:"true" default:"localhost"`
	Port     int           `split_words:"true" default:"6379"`
	Password string        `split_words:"true"`
	DB       int           `split_words:"true" default:"0"`
	TTL      time.Duration `split_words:"true" default:"5m"`
}

type KafkaConfig struct {
	Brokers       []string      `split_words:"true"`
	PaymentsTopic string        `split_words:"true" default:"marketplace.payments"`
	GatewayTopic  string        `split_words:"true" default:"marketplace.gateway"`
	ConsumerGroup string        `split_words:"true" default:"marketplace-service"`
	WriteTimeout  time.Duration `split_words:"true" default:"10s"`
}

// Enabled reports whether at least one broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.BrokerList()) > 0
}

// BrokerList returns the configured brokers without blanks.
func (k KafkaConfig) BrokerList() []string {
	brokers := make([]string, 0, len(k.Brokers))
	for _, b := range k.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type SettlementConfig struct {
	Delay          time.Duration `split_words:"true" default:"5s"`
	Workers        int           `split_words:"true" default:"64"`
	AcquireTimeout time.Duration `split_words:"true" default:"2s"`
	ConfirmTimeout time.Duration `split_words:"true" default:"30s"`
}

type PaymentsConfig struct {
	SweepInterval time.Duration `split_words:"true" default:"1m"`
	Retention     time.Duration `split_words:"true" default:"24h"`
	PendingTTL    time.Duration `split_words:"true" default:"0s"`
}

type LogConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true" default:"json"`
}

type FeatureFlags struct {
	EnableOrderCaching  bool `split_words:"true" default:"false"`
	EnableGatewayEvents bool `split_words:"true" default:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("SERVER_REQUEST_TIMEOUT must be positive")
	}
	if c.Settlement.Delay < 0 {
		return errors.New("SETTLEMENT_DELAY cannot be negative")
	}
	if c.Settlement.Workers <= 0 {
		return errors.New("SETTLEMENT_WORKERS must be positive")
	}
	if c.Settlement.AcquireTimeout <= 0 {
		return errors.New("SETTLEMENT_ACQUIRE_TIMEOUT must be positive")
	}
	if c.Payments.SweepInterval <= 0 {
		return errors.New("PAYMENT_SWEEP_INTERVAL must be positive")
	}
	if c.Payments.Retention <= 0 {
		return errors.New("PAYMENT_RETENTION must be positive")
	}
	if c.Payments.PendingTTL < 0 {
		return errors.New("PAYMENT_PENDING_TTL cannot be negative")
	}
	return nil
}
