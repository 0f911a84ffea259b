package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Generator.RatePerSec)
	assert.False(t, cfg.Generator.RatePerTeam)
	assert.Equal(t, []string{"symptom_report", "clinic_visit", "environmental_conditions"}, cfg.Generator.Streams)
	assert.Equal(t, []string{"Boston", "Cambridge", "Somerville", "Brookline", "Newton"}, cfg.Generator.Regions)
	assert.Equal(t, []string{"shared"}, cfg.Generator.Teams)
	assert.Equal(t, "events.team", cfg.Kafka.TopicPrefix)
	assert.Equal(t, ".raw", cfg.Kafka.TopicSuffix)
	assert.False(t, cfg.Generator.SeedSet)
	assert.False(t, cfg.MultiTeam())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "kafka-0:9092")
	t.Setenv("EVENT_RATE_PER_SEC", "25.5")
	t.Setenv("RATE_PER_TEAM", "true")
	t.Setenv("EVENT_STREAMS", "symptom_report, clinic_visit")
	t.Setenv("REGIONS", "Boston,Newton")
	t.Setenv("TEAMS", "team01,team02")
	t.Setenv("TOPIC", "events.raw")
	t.Setenv("RANDOM_SEED", "42")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PRODUCER_BATCH_TIMEOUT_MS", "25")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 25.5, cfg.Generator.RatePerSec)
	assert.True(t, cfg.Generator.RatePerTeam)
	assert.Equal(t, []string{"symptom_report", "clinic_visit"}, cfg.Generator.Streams)
	assert.Equal(t, []string{"Boston", "Newton"}, cfg.Generator.Regions)
	assert.Equal(t, []string{"team01", "team02"}, cfg.Generator.Teams)
	assert.Equal(t, "events.raw", cfg.Kafka.Topic)
	assert.True(t, cfg.Generator.SeedSet)
	assert.Equal(t, int64(42), cfg.Generator.Seed)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25*time.Millisecond, cfg.Kafka.BatchTimeout)
}

func TestLoadConfigTeamMapping(t *testing.T) {
	t.Setenv("TEAM_BOOTSTRAP_SERVERS", "team01=kafka-team01:9092, team02=kafka-team02:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.MultiTeam())
	assert.Equal(t, map[string]string{
		"team01": "kafka-team01:9092",
		"team02": "kafka-team02:9092",
	}, cfg.Kafka.TeamBootstrapServers)
	assert.Equal(t, []string{"team01", "team02"}, cfg.TeamIDs())
}

func TestLoadConfigNoDestination(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no destination configured")
}

func TestLoadConfigBothDestinations(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "kafka-0:9092")
	t.Setenv("TEAM_BOOTSTRAP_SERVERS", "team01=kafka-team01:9092")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoadConfigMalformedTeamMapping(t *testing.T) {
	t.Setenv("TEAM_BOOTSTRAP_SERVERS", "team01-no-separator")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected teamId=bootstrap")
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{
			name: "integer seed",
			raw:  "42",
			want: 42,
		},
		{
			name: "negative integer seed",
			raw:  "-7",
			want: -7,
		},
		{
			name: "non-numeric seed degrades to byte sum",
			raw:  "ab",
			want: int64('a') + int64('b'),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSeed(tt.raw))
		})
	}
}
