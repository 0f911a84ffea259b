package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultTopicPrefix = "events.team"
	DefaultTopicSuffix = ".raw"
	SharedTeamID       = "shared"
)

const (
	DefaultStreams = "symptom_report,clinic_visit,environmental_conditions"
	DefaultRegions = "Boston,Cambridge,Somerville,Brookline,Newton"
)

const (
	DefaultRatePerSec   = 10.0
	DefaultQueueCap     = 64
	ProgressLogInterval = 100
	FailureLogInterval  = 10
)

const (
	DefaultHealthSampleInterval = time.Second
	DefaultHealthWindowSamples  = 30
	DefaultDegradedRatio        = 0.5
)

const (
	ShutdownTimeout   = 5 * time.Second
	DrainGracePeriod  = 5 * time.Second
	PublishTimeout    = 5 * time.Second
	DefaultServerPort = 8000
)
