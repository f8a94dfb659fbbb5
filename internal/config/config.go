package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/senderwatch/internal/google"
	"github.com/teemow/senderwatch/internal/notify"
	"github.com/teemow/senderwatch/internal/retry"
	"github.com/teemow/senderwatch/internal/stats"
)

// EnvPrefix prefixes every environment override, e.g. SENDERWATCH_ANALYTICS_BACKEND.
const EnvPrefix = "SENDERWATCH"

// Analytics backends.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Notification sinks.
const (
	SinkLog  = "log"
	SinkAMQP = "amqp"
)

// Config is the senderwatch configuration.
type Config struct {
	// Account selects the Google OAuth token used for the mailbox.
	Account   string          `mapstructure:"account"`
	Google    GoogleConfig    `mapstructure:"google"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`

	// Path is the config file that was read, empty when none was.
	Path string `mapstructure:"-"`
}

// GoogleConfig holds the OAuth client credentials.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// RetryConfig configures the single retry of transient remote failures.
type RetryConfig struct {
	Backoff time.Duration `mapstructure:"backoff"`
}

// AnalyticsConfig selects and configures the message count backend.
type AnalyticsConfig struct {
	Backend string       `mapstructure:"backend"`
	Mongo   MongoConfig  `mapstructure:"mongo"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
}

// MongoConfig locates the message collection in MongoDB.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// SQLiteConfig locates the SQLite message store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// NotifyConfig selects where user notifications go.
type NotifyConfig struct {
	Sink   string     `mapstructure:"sink"`
	Buffer int        `mapstructure:"buffer"`
	AMQP   AMQPConfig `mapstructure:"amqp"`
}

// AMQPConfig configures the RabbitMQ notification publisher.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// RefreshConfig configures periodic re-queries. A zero interval disables them.
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Senders  []string      `mapstructure:"senders"`
	Period   string        `mapstructure:"period"`
}

// DefaultConfigPath returns ~/.config/senderwatch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "senderwatch", "config.yaml")
}

// DefaultSQLitePath returns ~/.local/share/senderwatch/messages.db.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "messages.db"
	}
	return filepath.Join(home, ".local", "share", "senderwatch", "messages.db")
}

// LoadDotEnv loads the given .env files into the process environment,
// defaulting to ./.env. Missing files are ignored and variables that are
// already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("account", google.DefaultAccount)
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("retry.backoff", retry.DefaultBackoff)
	v.SetDefault("analytics.backend", BackendSQLite)
	v.SetDefault("analytics.mongo.uri", "")
	v.SetDefault("analytics.mongo.database", "senderwatch")
	v.SetDefault("analytics.mongo.collection", "messages")
	v.SetDefault("analytics.sqlite.path", DefaultSQLitePath())
	v.SetDefault("notify.sink", SinkLog)
	v.SetDefault("notify.buffer", notify.DefaultBuffer)
	v.SetDefault("notify.amqp.url", "")
	v.SetDefault("notify.amqp.exchange", notify.DefaultExchange)
	v.SetDefault("refresh.interval", time.Duration(0))
	v.SetDefault("refresh.senders", []string{})
	v.SetDefault("refresh.period", string(stats.PeriodWeek))
}

// Load reads the configuration. An empty path reads DefaultConfigPath if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)

	used := path
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if explicit {
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		}
		used = ""
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Path = used
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func (c *Config) normalize() {
	c.Analytics.Backend = strings.ToLower(strings.TrimSpace(c.Analytics.Backend))
	c.Notify.Sink = strings.ToLower(strings.TrimSpace(c.Notify.Sink))

	senders := c.Refresh.Senders[:0]
	for _, s := range c.Refresh.Senders {
		if s = strings.TrimSpace(s); s != "" {
			senders = append(senders, s)
		}
	}
	c.Refresh.Senders = senders
}

// Validate rejects unknown backends and sinks and incomplete settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Account == "" {
		errs = append(errs, errors.New("account must not be empty"))
	}
	if c.Retry.Backoff < 0 {
		errs = append(errs, fmt.Errorf("retry.backoff must not be negative, got %s", c.Retry.Backoff))
	}

	switch c.Analytics.Backend {
	case BackendMongo:
		if c.Analytics.Mongo.URI == "" {
			errs = append(errs, errors.New("analytics.mongo.uri is required for the mongo backend"))
		}
		if c.Analytics.Mongo.Database == "" || c.Analytics.Mongo.Collection == "" {
			errs = append(errs, errors.New("analytics.mongo.database and analytics.mongo.collection are required"))
		}
	case BackendSQLite:
		if c.Analytics.SQLite.Path == "" {
			errs = append(errs, errors.New("analytics.sqlite.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown analytics.backend %q (expected %s or %s)", c.Analytics.Backend, BackendMongo, BackendSQLite))
	}

	switch c.Notify.Sink {
	case SinkLog:
	case SinkAMQP:
		if c.Notify.AMQP.URL == "" {
			errs = append(errs, errors.New("notify.amqp.url is required for the amqp sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notify.sink %q (expected %s or %s)", c.Notify.Sink, SinkLog, SinkAMQP))
	}
	if c.Notify.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("notify.buffer must be positive, got %d", c.Notify.Buffer))
	}

	if c.Refresh.Interval < 0 {
		errs = append(errs, fmt.Errorf("refresh.interval must not be negative, got %s", c.Refresh.Interval))
	}
	if c.Refresh.Interval > 0 && c.Refresh.Interval < time.Second {
		errs = append(errs, fmt.Errorf("refresh.interval must be at least 1s, got %s", c.Refresh.Interval))
	}
	if _, err := stats.ParsePeriod(c.Refresh.Period); err != nil {
		errs = append(errs, fmt.Errorf("refresh.period: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Credentials returns the Google OAuth client credentials.
func (c *Config) Credentials() google.Credentials {
	return google.Credentials{ClientID: c.Google.ClientID, ClientSecret: c.Google.ClientSecret}
}
