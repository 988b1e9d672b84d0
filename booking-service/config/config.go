package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Broker drivers accepted in broker.driver
const (
	BrokerSQS    = "sqs"
	BrokerAsynq  = "asynq"
	BrokerMemory = "memory"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	Database    Database  `mapstructure:"database"`
	AWS         AWS       `mapstructure:"aws"`
	Broker      Broker    `mapstructure:"broker"`
	Saga        Saga      `mapstructure:"saga"`
	Sweep       Sweep     `mapstructure:"sweep"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
}

type Database struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	// Path is the database file when the driver is sqlite
	Path string `mapstructure:"path"`
}

type AWS struct {
	Region      string `mapstructure:"region"`
	EndpointSNS string `mapstructure:"endpoint_sns"`
	EndpointSQS string `mapstructure:"endpoint_sqs"`
	SNSTopicArn string `mapstructure:"sns_topic_arn"`
	SQSQueueURL string `mapstructure:"sqs_queue_url"`
}

type Broker struct {
	Driver     string        `mapstructure:"driver"`
	Workers    int           `mapstructure:"workers"`
	MaxRetries int           `mapstructure:"max_retries"`
	Queue      string        `mapstructure:"queue"`
	DedupeTTL  time.Duration `mapstructure:"dedupe_ttl"`
	// VisibilityTimeout is how long a received SQS message stays hidden from other readers
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db"`
}

type Saga struct {
	Decision        string     `mapstructure:"decision"`
	PublishOutcomes bool       `mapstructure:"publish_outcomes"`
	StoreRetry      StoreRetry `mapstructure:"store_retry"`
}

type StoreRetry struct {
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type Sweep struct {
	StalenessThreshold time.Duration `mapstructure:"staleness_threshold"`
	// Schedule is a five field cron expression or descriptor; empty disables the scheduler
	Schedule    string `mapstructure:"schedule"`
	Concurrency int    `mapstructure:"concurrency"`
}

type Telemetry struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceVersion string `mapstructure:"service_version"`
}

// ReadConfig loads <ENVIRONMENT>.json from this directory. Any key can be
// overridden with a BOOKING_ prefixed variable, e.g. BOOKING_BROKER_DRIVER.
func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("unable to get current file")
	}

	return readConfig(filepath.Dir(filename), getConfigName())
}

func readConfig(configDir, name string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	// Service defaults
	v.SetDefault("service_name", "booking-service")
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", "8080"))

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "booking_system")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "bookings.db")

	// AWS defaults
	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", ""))
	v.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", ""))
	v.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:booking-events"))
	v.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/booking-events"))

	// Broker defaults
	v.SetDefault("broker.driver", BrokerSQS)
	v.SetDefault("broker.workers", 10)
	v.SetDefault("broker.max_retries", 5)
	v.SetDefault("broker.queue", "bookings")
	v.SetDefault("broker.dedupe_ttl", time.Minute)
	v.SetDefault("broker.visibility_timeout", 30*time.Second)
	v.SetDefault("broker.redis_addr", "localhost:6379")
	v.SetDefault("broker.redis_password", "")
	v.SetDefault("broker.redis_db", 0)

	// Saga defaults
	v.SetDefault("saga.decision", "parity")
	v.SetDefault("saga.publish_outcomes", false)
	v.SetDefault("saga.store_retry.max_tries", 3)
	v.SetDefault("saga.store_retry.initial_interval", 100*time.Millisecond)
	v.SetDefault("saga.store_retry.max_interval", 2*time.Second)

	// Sweep defaults
	v.SetDefault("sweep.staleness_threshold", 5*time.Minute)
	v.SetDefault("sweep.schedule", "@every 5m")
	v.SetDefault("sweep.concurrency", 10)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_version", "1.0.0")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Broker.Driver {
	case BrokerSQS, BrokerAsynq, BrokerMemory:
	default:
		return errors.Errorf("unsupported broker driver %q", c.Broker.Driver)
	}

	if c.Broker.MaxRetries < 0 {
		return errors.New("broker.max_retries must not be negative")
	}
	if c.Broker.VisibilityTimeout < 0 || c.Broker.VisibilityTimeout > 12*time.Hour {
		return errors.New("broker.visibility_timeout must be between 0 and 12h")
	}
	if c.Sweep.StalenessThreshold < 0 {
		return errors.New("sweep.staleness_threshold must not be negative")
	}

	return nil
}

// GetDatabaseURL returns the data source name for the configured driver
func (c *Config) GetDatabaseURL() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}

	if c.Database.URL != "" {
		return c.Database.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Database,
		RawQuery: "sslmode=" + c.Database.SSLMode,
	}
	return u.String()
}
