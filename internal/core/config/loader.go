package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Default stream layout, shared with the upstream producers.
const (
	DefaultServiceName   = "Wallet Scoring API"
	DefaultInputStream   = "wallet-transactions"
	DefaultSuccessStream = "wallet-scores-success"
	DefaultFailureStream = "wallet-scores-failure"
	DefaultConsumerGroup = "ai-scoring-service"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${ENV} references first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = DefaultServiceName
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	q := &cfg.Queue
	if q.InputStream == "" {
		q.InputStream = DefaultInputStream
	}
	if q.SuccessStream == "" {
		q.SuccessStream = DefaultSuccessStream
	}
	if q.FailureStream == "" {
		q.FailureStream = DefaultFailureStream
	}
	if q.ConsumerGroup == "" {
		q.ConsumerGroup = DefaultConsumerGroup
	}
	if q.BlockTimeout == 0 {
		q.BlockTimeout = 5 * time.Second
	}
	if q.BatchSize == 0 {
		q.BatchSize = 10
	}
	if q.ConnectAttempts == 0 {
		q.ConnectAttempts = 5
	}
	if q.ConnectDelay == 0 {
		q.ConnectDelay = 5 * time.Second
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
}
