package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Database DatabaseConfig
	DynamoDB DynamoDBConfig
	AWS      AWSConfig
	Queue    QueueConfig
	Redis    RedisConfig
	SQS      SQSConfig
	Blob     BlobConfig
	Template TemplateConfig
	Render   RenderConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggerConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the record store: memory, postgres or dynamodb.
type StoreConfig struct {
	Driver              string
	SpecificationsTable string
	GroupsTable         string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders a postgres URL with user and password escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type DynamoDBConfig struct {
	SpecificationsTable string
	GroupsTable         string
}

type AWSConfig struct {
	Region string
	// EndpointURL points every AWS client at a local emulator when set.
	EndpointURL string
}

// QueueConfig selects the change queue: memory, redis or sqs.
type QueueConfig struct {
	Driver            string
	VisibilityTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type SQSConfig struct {
	QueueURL string
}

// BlobConfig selects the blob store: memory or s3.
type BlobConfig struct {
	Driver     string
	Bucket     string
	PresignTTL time.Duration
}

type TemplateConfig struct {
	Prefix  string
	Default string
}

type RenderConfig struct {
	Workers   int
	BatchSize int
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	v := viper.New()

	hostname, _ := os.Hostname()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "specifications")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DYNAMODB_SPECIFICATIONS_TABLE", "specifications")
	v.SetDefault("DYNAMODB_GROUPS_TABLE", "specification_groups")
	v.SetDefault("AWS_REGION", "ap-northeast-1")
	v.SetDefault("AWS_ENDPOINT_URL", "")

	v.SetDefault("QUEUE_DRIVER", "memory")
	v.SetDefault("QUEUE_VISIBILITY_TIMEOUT", "60s")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_STREAM", "specification-changes")
	v.SetDefault("REDIS_GROUP", "renderer")
	v.SetDefault("REDIS_CONSUMER", hostname)
	v.SetDefault("SQS_QUEUE_URL", "")

	v.SetDefault("BLOB_DRIVER", "memory")
	v.SetDefault("S3_BUCKET", "specifications")
	v.SetDefault("PRESIGN_TTL", "1h")
	v.SetDefault("TEMPLATE_PREFIX", "templates/")
	v.SetDefault("TEMPLATE_DEFAULT", "templates/default.xlsx")

	v.SetDefault("RENDER_WORKERS", 4)
	v.SetDefault("RENDER_BATCH_SIZE", 10)
	v.SetDefault("METRICS_ENABLED", true)

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Store: StoreConfig{
			Driver: v.GetString("STORE_DRIVER"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		DynamoDB: DynamoDBConfig{
			SpecificationsTable: v.GetString("DYNAMODB_SPECIFICATIONS_TABLE"),
			GroupsTable:         v.GetString("DYNAMODB_GROUPS_TABLE"),
		},
		AWS: AWSConfig{
			Region:      v.GetString("AWS_REGION"),
			EndpointURL: v.GetString("AWS_ENDPOINT_URL"),
		},
		Queue: QueueConfig{
			Driver:            v.GetString("QUEUE_DRIVER"),
			VisibilityTimeout: v.GetDuration("QUEUE_VISIBILITY_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Stream:   v.GetString("REDIS_STREAM"),
			Group:    v.GetString("REDIS_GROUP"),
			Consumer: v.GetString("REDIS_CONSUMER"),
		},
		SQS: SQSConfig{
			QueueURL: v.GetString("SQS_QUEUE_URL"),
		},
		Blob: BlobConfig{
			Driver:     v.GetString("BLOB_DRIVER"),
			Bucket:     v.GetString("S3_BUCKET"),
			PresignTTL: v.GetDuration("PRESIGN_TTL"),
		},
		Template: TemplateConfig{
			Prefix:  v.GetString("TEMPLATE_PREFIX"),
			Default: v.GetString("TEMPLATE_DEFAULT"),
		},
		Render: RenderConfig{
			Workers:   v.GetInt("RENDER_WORKERS"),
			BatchSize: v.GetInt("RENDER_BATCH_SIZE"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
	// Table names are shared by the postgres and dynamodb stores.
	cfg.Store.SpecificationsTable = cfg.DynamoDB.SpecificationsTable
	cfg.Store.GroupsTable = cfg.DynamoDB.GroupsTable

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "postgres", "dynamodb":
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", c.Store.Driver)
	}
	switch c.Queue.Driver {
	case "memory", "redis":
	case "sqs":
		if c.SQS.QueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when QUEUE_DRIVER=sqs")
		}
	default:
		return fmt.Errorf("QUEUE_DRIVER: unknown driver %q", c.Queue.Driver)
	}
	switch c.Blob.Driver {
	case "memory", "s3":
	default:
		return fmt.Errorf("BLOB_DRIVER: unknown driver %q", c.Blob.Driver)
	}
	return nil
}
