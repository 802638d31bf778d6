package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/mevdschee/tqbulk/client"
	"gopkg.in/ini.v1"
)

// Config holds the benchmark configuration
type Config struct {
	Client     ClientConfig
	Batch      BatchConfig
	Connection ConnectionConfig
	Benchmark  BenchmarkConfig
}

// ClientConfig holds the admission settings of the client
type ClientConfig struct {
	MaxSessions int
}

// BatchConfig holds the transport-side write batching settings
type BatchConfig struct {
	Enabled        bool
	ThreadIsolated bool
	BatchSize      int
	TimeoutMs      int
}

// ConnectionConfig holds the database connection parameters
type ConnectionConfig struct {
	Driver   string
	Host     string
	Port     uint16 // 0 selects the driver default
	User     string
	Password string
	Database string // file path for sqlite3
}

// BenchmarkConfig holds the insert benchmark settings
type BenchmarkConfig struct {
	DataSize int
	Threads  int
	Table    string
}

// Default returns the configuration used when no file is given
func Default() *Config {
	policy := client.DefaultPolicy()
	return &Config{
		Client: ClientConfig{MaxSessions: policy.MaxSessions},
		Batch: BatchConfig{
			Enabled:        policy.Batch.Enabled,
			ThreadIsolated: policy.Batch.ThreadIsolated,
			BatchSize:      policy.Batch.BatchSize,
			TimeoutMs:      policy.Batch.TimeoutMs,
		},
		Connection: ConnectionConfig{
			Driver:   "sqlite3",
			Host:     "127.0.0.1",
			Database: "test",
		},
		Benchmark: BenchmarkConfig{
			DataSize: 1000000,
			Threads:  runtime.NumCPU(),
			Table:    "bw0001",
		},
	}
}

// Load reads configuration from an INI file with environment variable overrides
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	config := Default()

	sec := file.Section("client")
	config.Client.MaxSessions = sec.Key("max_sessions").MustInt(config.Client.MaxSessions)

	sec = file.Section("batch")
	config.Batch.Enabled = sec.Key("enabled").MustBool(config.Batch.Enabled)
	config.Batch.ThreadIsolated = sec.Key("thread_isolated").MustBool(config.Batch.ThreadIsolated)
	config.Batch.BatchSize = sec.Key("batch_size").MustInt(config.Batch.BatchSize)
	config.Batch.TimeoutMs = sec.Key("timeout_ms").MustInt(config.Batch.TimeoutMs)

	sec = file.Section("connection")
	config.Connection.Driver = sec.Key("driver").MustString(config.Connection.Driver)
	config.Connection.Host = sec.Key("host").MustString(config.Connection.Host)
	config.Connection.Port = uint16(sec.Key("port").MustUint(uint(config.Connection.Port)))
	config.Connection.User = sec.Key("user").String()
	config.Connection.Password = sec.Key("password").String()
	config.Connection.Database = sec.Key("database").MustString(config.Connection.Database)

	sec = file.Section("benchmark")
	config.Benchmark.DataSize = sec.Key("data_size").MustInt(config.Benchmark.DataSize)
	config.Benchmark.Threads = sec.Key("threads").MustInt(config.Benchmark.Threads)
	config.Benchmark.Table = sec.Key("table").MustString(config.Benchmark.Table)

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv applies the TQBULK_* environment variable overrides
func (c *Config) applyEnv() error {
	if v := os.Getenv("TQBULK_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TQBULK_MAX_SESSIONS=%q", ErrInvalidValue, v)
		}
		c.Client.MaxSessions = n
	}
	if v := os.Getenv("TQBULK_DRIVER"); v != "" {
		c.Connection.Driver = v
	}
	if v := os.Getenv("TQBULK_HOST"); v != "" {
		c.Connection.Host = v
	}
	if v := os.Getenv("TQBULK_DATABASE"); v != "" {
		c.Connection.Database = v
	}
	if v := os.Getenv("TQBULK_USER"); v != "" {
		c.Connection.User = v
	}
	if v := os.Getenv("TQBULK_PASSWORD"); v != "" {
		c.Connection.Password = v
	}
	return nil
}

// Policy returns the client policy described by the configuration
func (c *Config) Policy() client.Policy {
	return client.Policy{
		MaxSessions: c.Client.MaxSessions,
		Batch: client.BatchPolicy{
			Enabled:        c.Batch.Enabled,
			ThreadIsolated: c.Batch.ThreadIsolated,
			BatchSize:      c.Batch.BatchSize,
			TimeoutMs:      c.Batch.TimeoutMs,
		},
	}
}

// ConnectPort returns the configured port, or the driver default when unset
func (c *Config) ConnectPort() uint16 {
	if c.Connection.Port != 0 {
		return c.Connection.Port
	}
	switch c.Connection.Driver {
	case "mysql":
		return 3306
	case "postgres":
		return 5432
	}
	return 0
}
