package events

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

var symptoms = []string{
	"fever", "cough", "fatigue", "headache", "sore_throat",
	"shortness_of_breath", "body_aches", "loss_of_taste",
	"loss_of_smell", "nausea", "diarrhea", "congestion",
}

var visitTypes = []string{
	"routine_checkup", "emergency", "follow_up",
	"vaccination", "diagnostic_test", "consultation",
}

var severities = []string{"mild", "moderate", "severe"}

var reportChannels = []string{"mobile_app", "web_portal", "phone_hotline"}

// SynthFunc produces one payload for its stream. Implementations must
// draw all randomness from the supplied source so that a fixed seed
// yields an identical payload sequence.
type SynthFunc func(rng *rand.Rand, now time.Time, regions []string) Event

// Registry maps stream tags to synthesis functions. Adding a stream is a
// Register call; dispatch elsewhere never changes.
type Registry struct {
	regions []string
	now     func() time.Time
	synths  map[string]SynthFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the synthesis clock. Reproducible runs pin the
// clock alongside the random seed.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry builds a registry with the built-in streams registered.
func NewRegistry(regions []string, opts ...Option) *Registry {
	r := &Registry{
		regions: regions,
		now:     time.Now,
		synths:  make(map[string]SynthFunc),
	}

	r.Register(StreamSymptomReport, synthesizeSymptomReport)
	r.Register(StreamClinicVisit, synthesizeClinicVisit)
	r.Register(StreamEnvironmental, synthesizeEnvironmental)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Registry) Register(stream string, fn SynthFunc) {
	r.synths[stream] = fn
}

// Validate confirms every enabled stream tag has a synthesizer. Unknown
// tags are a startup configuration error, never a publish-time surprise.
func (r *Registry) Validate(streams []string) error {
	for _, stream := range streams {
		if _, ok := r.synths[stream]; !ok {
			return fmt.Errorf("unknown event stream %q (known: %v)", stream, r.Streams())
		}
	}
	return nil
}

// Streams returns the registered stream tags in registration-independent
// sorted order.
func (r *Registry) Streams() []string {
	tags := make([]string, 0, len(r.synths))
	for tag := range r.synths {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Synthesize produces one envelope for the given stream tag.
func (r *Registry) Synthesize(stream string, rng *rand.Rand) (Event, error) {
	fn, ok := r.synths[stream]
	if !ok {
		return Event{}, fmt.Errorf("unknown event stream %q", stream)
	}
	return fn(rng, r.now().UTC(), r.regions), nil
}

func synthesizeSymptomReport(rng *rand.Rand, now time.Time, regions []string) Event {
	patientID := fmt.Sprintf("P%d", 10000+rng.Intn(90000))
	payload := SymptomReport{
		EventType:    StreamSymptomReport,
		Timestamp:    now.Format(TimestampLayout),
		PatientID:    patientID,
		Age:          1 + rng.Intn(90),
		Region:       choice(rng, regions),
		Symptoms:     sample(rng, symptoms, 1+rng.Intn(4)),
		Severity:     choice(rng, severities),
		DurationDays: 1 + rng.Intn(14),
		ReportedVia:  choice(rng, reportChannels),
	}
	return Event{Stream: StreamSymptomReport, Key: patientID, Payload: payload}
}

func synthesizeClinicVisit(rng *rand.Rand, now time.Time, regions []string) Event {
	visitID := fmt.Sprintf("V%d", 100000+rng.Intn(900000))
	payload := ClinicVisit{
		EventType:            StreamClinicVisit,
		Timestamp:            now.Format(TimestampLayout),
		VisitID:              visitID,
		PatientID:            fmt.Sprintf("P%d", 10000+rng.Intn(90000)),
		ClinicID:             fmt.Sprintf("C%d", 1+rng.Intn(50)),
		Region:               choice(rng, regions),
		VisitType:            choice(rng, visitTypes),
		PrimaryComplaint:     choice(rng, symptoms),
		TemperatureF:         roundTenth(97.0 + rng.Float64()*7.0),
		DiagnosisCode:        fmt.Sprintf("ICD%d", 100+rng.Intn(900)),
		PrescribedMedication: rng.Intn(2) == 1,
	}
	return Event{Stream: StreamClinicVisit, Key: visitID, Payload: payload}
}

func synthesizeEnvironmental(rng *rand.Rand, now time.Time, regions []string) Event {
	stationID := fmt.Sprintf("S%d", 1+rng.Intn(20))
	payload := EnvironmentalConditions{
		EventType:       StreamEnvironmental,
		Timestamp:       now.Format(TimestampLayout),
		Region:          choice(rng, regions),
		StationID:       stationID,
		TemperatureF:    roundTenth(20.0 + rng.Float64()*75.0),
		HumidityPercent: 30 + rng.Intn(66),
		AirQualityIndex: rng.Intn(201),
		PollenCount:     rng.Intn(501),
		UVIndex:         rng.Intn(12),
	}
	return Event{Stream: StreamEnvironmental, Key: stationID, Payload: payload}
}

func choice(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

// sample draws k distinct elements, preserving nothing of the original
// order beyond the permutation the source produces.
func sample(rng *rand.Rand, values []string, k int) []string {
	if k > len(values) {
		k = len(values)
	}
	out := make([]string, 0, k)
	for _, i := range rng.Perm(len(values))[:k] {
		out = append(out, values[i])
	}
	return out
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
