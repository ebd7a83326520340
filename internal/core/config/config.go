package config

import (
	"time"

	redisclient "github.com/vietddude/walletscore/internal/infra/redis"
	"github.com/vietddude/walletscore/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Service  ServiceConfig      `yaml:"service"`
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Redis    redisclient.Config `yaml:"redis"`
	Queue    QueueConfig        `yaml:"queue"`
	Database postgres.Config    `yaml:"database"`
	Archive  ArchiveConfig      `yaml:"archive"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds HTTP and gRPC listener settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 disables gRPC
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// QueueConfig holds the stream names and read settings of the queue consumer.
type QueueConfig struct {
	InputStream     string        `yaml:"input_stream"`
	SuccessStream   string        `yaml:"success_stream"`
	FailureStream   string        `yaml:"failure_stream"`
	ConsumerGroup   string        `yaml:"consumer_group"`
	ConsumerName    string        `yaml:"consumer_name"`
	BlockTimeout    time.Duration `yaml:"block_timeout"`
	BatchSize       int64         `yaml:"batch_size"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectDelay    time.Duration `yaml:"connect_delay"`
}

// ArchiveConfig controls result retention.
type ArchiveConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}
