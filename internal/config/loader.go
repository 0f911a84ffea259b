package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pulsegen/internal/constants"
)

// LoadConfig builds the immutable process configuration from an optional
// YAML file plus environment overrides. The environment surface matches
// the generator's deployment contract (EVENT_RATE_PER_SEC, RATE_PER_TEAM,
// TEAM_BOOTSTRAP_SERVERS, ...), so a config file is never required.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	setDefaults()
	bindEnvVariables()
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigType("yaml")
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", constants.DefaultServerPort)
	viper.SetDefault("server.read_timeout_seconds", 10*time.Second)
	viper.SetDefault("server.write_timeout_seconds", 10*time.Second)
	viper.SetDefault("server.drain_grace_period", constants.DrainGracePeriod)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("generator.rate_per_sec", constants.DefaultRatePerSec)
	viper.SetDefault("generator.rate_per_team", false)
	viper.SetDefault("generator.queue_capacity", constants.DefaultQueueCap)

	viper.SetDefault("kafka.topic_prefix", constants.DefaultTopicPrefix)
	viper.SetDefault("kafka.topic_suffix", constants.DefaultTopicSuffix)
	viper.SetDefault("kafka.batch_timeout", constants.KafkaBatchTimeout)
	viper.SetDefault("kafka.batch_size", 100)
	viper.SetDefault("kafka.write_timeout", constants.KafkaWriteTimeout)

	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.initial_interval", 100*time.Millisecond)
	viper.SetDefault("retry.max_interval", 2*time.Second)
	viper.SetDefault("retry.multiplier", 2.0)
	viper.SetDefault("retry.attempt_timeout", constants.PublishTimeout)

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60*time.Second)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 3)

	viper.SetDefault("health.sample_interval", constants.DefaultHealthSampleInterval)
	viper.SetDefault("health.window_samples", constants.DefaultHealthWindowSamples)
	viper.SetDefault("health.degraded_ratio", constants.DefaultDegradedRatio)
}

func bindEnvVariables() {
	viper.BindEnv("generator.rate_per_sec", "EVENT_RATE_PER_SEC")
	viper.BindEnv("generator.rate_per_team", "RATE_PER_TEAM")
	viper.BindEnv("generator.queue_capacity", "QUEUE_CAPACITY")

	viper.BindEnv("kafka.bootstrap_servers", "KAFKA_BOOTSTRAP_SERVERS")
	viper.BindEnv("kafka.topic", "TOPIC")
	viper.BindEnv("kafka.topic_prefix", "TOPIC_PREFIX")
	viper.BindEnv("kafka.topic_suffix", "TOPIC_SUFFIX")
	viper.BindEnv("kafka.batch_size", "PRODUCER_BATCH_SIZE")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

// applyEnvOverrides handles the environment values viper cannot unmarshal
// directly: comma-separated lists, the team=bootstrap mapping, the
// millisecond batch timeout and the seed (which distinguishes "unset"
// from zero and accepts non-numeric values by byte-summing them).
func applyEnvOverrides(cfg *Config) error {
	if streams := viper.GetString("EVENT_STREAMS"); streams != "" {
		cfg.Generator.Streams = splitList(streams)
	}
	if len(cfg.Generator.Streams) == 0 {
		cfg.Generator.Streams = splitList(constants.DefaultStreams)
	}

	if weights := viper.GetString("EVENT_STREAM_WEIGHTS"); weights != "" {
		parsed, err := parseWeights(weights)
		if err != nil {
			return err
		}
		cfg.Generator.StreamWeights = parsed
	}

	if regions := viper.GetString("REGIONS"); regions != "" {
		cfg.Generator.Regions = splitList(regions)
	}
	if len(cfg.Generator.Regions) == 0 {
		cfg.Generator.Regions = splitList(constants.DefaultRegions)
	}

	if teams := viper.GetString("TEAMS"); teams != "" {
		cfg.Generator.Teams = splitList(teams)
	}
	if len(cfg.Generator.Teams) == 0 {
		cfg.Generator.Teams = []string{constants.SharedTeamID}
	}

	if mapping := viper.GetString("TEAM_BOOTSTRAP_SERVERS"); mapping != "" {
		parsed, err := parseTeamMapping(mapping)
		if err != nil {
			return err
		}
		cfg.Kafka.TeamBootstrapServers = parsed
	}

	if ms := viper.GetString("PRODUCER_BATCH_TIMEOUT_MS"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil {
			return fmt.Errorf("invalid PRODUCER_BATCH_TIMEOUT_MS %q: %w", ms, err)
		}
		cfg.Kafka.BatchTimeout = time.Duration(v) * time.Millisecond
	}

	if seed := viper.GetString("RANDOM_SEED"); seed != "" {
		cfg.Generator.Seed = parseSeed(seed)
		cfg.Generator.SeedSet = true
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseWeights(raw string) ([]float64, error) {
	parts := splitList(raw)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stream weight %q: %w", p, err)
		}
		out = append(out, w)
	}
	return out, nil
}

// parseTeamMapping parses "team01=broker-a:9092,team02=broker-b:9092".
func parseTeamMapping(raw string) (map[string]string, error) {
	mapping := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		teamID, bootstrap, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("invalid TEAM_BOOTSTRAP_SERVERS entry %q: expected teamId=bootstrap", entry)
		}
		teamID = strings.TrimSpace(teamID)
		bootstrap = strings.TrimSpace(bootstrap)
		if teamID == "" || bootstrap == "" {
			return nil, fmt.Errorf("invalid TEAM_BOOTSTRAP_SERVERS entry %q: empty team id or bootstrap", entry)
		}
		mapping[teamID] = bootstrap
	}
	return mapping, nil
}

// parseSeed accepts an integer seed; any other value degrades to the sum
// of its bytes so that an arbitrary string still seeds deterministically.
func parseSeed(raw string) int64 {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	var sum int64
	for _, c := range []byte(raw) {
		sum += int64(c)
	}
	return sum
}
