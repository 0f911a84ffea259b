package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic rejects invalid configuration before any scheduling
// begins. Unknown stream tags are validated separately by the event
// registry, which owns the set of known tags.
func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateGenerator(cfg.Generator); err != nil {
		errors = append(errors, err)
	}

	if err := validateKafka(cfg.Kafka); err != nil {
		errors = append(errors, err)
	}

	if err := validateRetry(cfg.Retry); err != nil {
		errors = append(errors, err)
	}

	if err := validateHealth(cfg.Health); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	if cfg.DrainGracePeriod < 0 {
		return &ValidationError{
			Field:   "server.drain_grace_period",
			Message: "drain grace period must be non-negative",
		}
	}

	return nil
}

func validateGenerator(cfg GeneratorConfig) error {
	if cfg.RatePerSec <= 0 {
		return &ValidationError{
			Field:   "generator.rate_per_sec",
			Message: fmt.Sprintf("event rate must be positive, got %g", cfg.RatePerSec),
		}
	}

	if len(cfg.Streams) == 0 {
		return &ValidationError{
			Field:   "generator.streams",
			Message: "at least one event stream is required",
		}
	}

	seen := make(map[string]bool, len(cfg.Streams))
	for i, stream := range cfg.Streams {
		if stream == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("generator.streams[%d]", i),
				Message: "stream tag cannot be empty",
			}
		}
		if seen[stream] {
			return &ValidationError{
				Field:   fmt.Sprintf("generator.streams[%d]", i),
				Message: fmt.Sprintf("duplicate stream tag: %s", stream),
			}
		}
		seen[stream] = true
	}

	if len(cfg.StreamWeights) > 0 {
		if len(cfg.StreamWeights) != len(cfg.Streams) {
			return &ValidationError{
				Field:   "generator.stream_weights",
				Message: fmt.Sprintf("expected %d weights for %d streams, got %d", len(cfg.Streams), len(cfg.Streams), len(cfg.StreamWeights)),
			}
		}
		var sum float64
		for i, w := range cfg.StreamWeights {
			if w < 0 {
				return &ValidationError{
					Field:   fmt.Sprintf("generator.stream_weights[%d]", i),
					Message: "weight must be non-negative",
				}
			}
			sum += w
		}
		if sum <= 0 {
			return &ValidationError{
				Field:   "generator.stream_weights",
				Message: "weights must sum to a positive value",
			}
		}
	}

	if len(cfg.Regions) == 0 {
		return &ValidationError{
			Field:   "generator.regions",
			Message: "at least one region is required",
		}
	}

	if len(cfg.Teams) == 0 {
		return &ValidationError{
			Field:   "generator.teams",
			Message: "at least one team label is required",
		}
	}

	seenTeams := make(map[string]bool, len(cfg.Teams))
	for i, team := range cfg.Teams {
		if team == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("generator.teams[%d]", i),
				Message: "team id cannot be empty",
			}
		}
		if seenTeams[team] {
			return &ValidationError{
				Field:   fmt.Sprintf("generator.teams[%d]", i),
				Message: fmt.Sprintf("duplicate team id: %s", team),
			}
		}
		seenTeams[team] = true
	}

	if cfg.QueueCapacity < 1 {
		return &ValidationError{
			Field:   "generator.queue_capacity",
			Message: "queue capacity must be positive",
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if cfg.BootstrapServers == "" && len(cfg.TeamBootstrapServers) == 0 {
		return &ValidationError{
			Field:   "kafka.bootstrap_servers",
			Message: "no destination configured: set KAFKA_BOOTSTRAP_SERVERS or TEAM_BOOTSTRAP_SERVERS",
		}
	}

	if cfg.BootstrapServers != "" && len(cfg.TeamBootstrapServers) > 0 {
		return &ValidationError{
			Field:   "kafka.bootstrap_servers",
			Message: "KAFKA_BOOTSTRAP_SERVERS and TEAM_BOOTSTRAP_SERVERS are mutually exclusive",
		}
	}

	for teamID, bootstrap := range cfg.TeamBootstrapServers {
		if bootstrap == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("kafka.team_bootstrap_servers[%s]", teamID),
				Message: "bootstrap address cannot be empty",
			}
		}
	}

	if cfg.Topic == "" && cfg.TopicPrefix == "" && cfg.TopicSuffix == "" {
		return &ValidationError{
			Field:   "kafka.topic",
			Message: "topic naming requires TOPIC or a TOPIC_PREFIX/TOPIC_SUFFIX pair",
		}
	}

	if cfg.BatchSize < 1 {
		return &ValidationError{
			Field:   "kafka.batch_size",
			Message: "batch size must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "kafka.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateRetry(cfg RetryConfig) error {
	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "retry.max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   "retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   "retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   "retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	if cfg.AttemptTimeout <= 0 {
		return &ValidationError{
			Field:   "retry.attempt_timeout",
			Message: "attempt timeout must be positive",
		}
	}

	return nil
}

func validateHealth(cfg HealthConfig) error {
	if cfg.SampleInterval <= 0 {
		return &ValidationError{
			Field:   "health.sample_interval",
			Message: "sample interval must be positive",
		}
	}

	if cfg.WindowSamples < 1 {
		return &ValidationError{
			Field:   "health.window_samples",
			Message: "window must cover at least one sample",
		}
	}

	if cfg.DegradedRatio <= 0 || cfg.DegradedRatio > 1 {
		return &ValidationError{
			Field:   "health.degraded_ratio",
			Message: fmt.Sprintf("degraded ratio must be in (0, 1], got %g", cfg.DegradedRatio),
		}
	}

	return nil
}
