package config

import (
	"sort"
	"time"
)

type Config struct {
	Server         ServerConfig
	Logging        LoggingConfig
	Generator      GeneratorConfig
	Kafka          KafkaConfig
	Retry          RetryConfig
	CircuitBreaker CircuitBreakerConfig
	Health         HealthConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
	DrainGracePeriod    time.Duration `mapstructure:"drain_grace_period"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GeneratorConfig is immutable after startup. Every component receives it
// by value or reads it through its owning component.
type GeneratorConfig struct {
	RatePerSec    float64   `mapstructure:"rate_per_sec"`
	RatePerTeam   bool      `mapstructure:"rate_per_team"`
	Streams       []string  `mapstructure:"streams"`
	StreamWeights []float64 `mapstructure:"stream_weights"`
	Regions       []string  `mapstructure:"regions"`
	Teams         []string  `mapstructure:"teams"`
	Seed          int64     `mapstructure:"seed"`
	SeedSet       bool      `mapstructure:"seed_set"`
	QueueCapacity int       `mapstructure:"queue_capacity"`
}

type KafkaConfig struct {
	BootstrapServers     string            `mapstructure:"bootstrap_servers"`
	TeamBootstrapServers map[string]string `mapstructure:"team_bootstrap_servers"`
	Topic                string            `mapstructure:"topic"`
	TopicPrefix          string            `mapstructure:"topic_prefix"`
	TopicSuffix          string            `mapstructure:"topic_suffix"`
	BatchTimeout         time.Duration     `mapstructure:"batch_timeout"`
	BatchSize            int               `mapstructure:"batch_size"`
	WriteTimeout         time.Duration     `mapstructure:"write_timeout"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type HealthConfig struct {
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	WindowSamples  int           `mapstructure:"window_samples"`
	DegradedRatio  float64       `mapstructure:"degraded_ratio"`
}

// MultiTeam reports whether the generator routes to per-team clusters
// rather than one shared cluster.
func (c *Config) MultiTeam() bool {
	return len(c.Kafka.TeamBootstrapServers) > 0
}

// TeamIDs returns the validated team ids in deterministic (sorted) order.
func (c *Config) TeamIDs() []string {
	if c.MultiTeam() {
		ids := make([]string, 0, len(c.Kafka.TeamBootstrapServers))
		for id := range c.Kafka.TeamBootstrapServers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}
	ids := make([]string, len(c.Generator.Teams))
	copy(ids, c.Generator.Teams)
	return ids
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
