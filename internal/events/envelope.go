package events

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the wire format for envelope timestamps (ISO-8601, UTC).
const TimestampLayout = time.RFC3339Nano

const (
	StreamSymptomReport = "symptom_report"
	StreamClinicVisit   = "clinic_visit"
	StreamEnvironmental = "environmental_conditions"
)

// Event is one synthesized envelope. Immutable once created; synthesized
// fresh per publish, never reused.
type Event struct {
	Stream  string
	Key     string
	Payload interface{}
}

// Marshal serializes the payload. Payloads are structs with a fixed field
// order, so the key order of the JSON output is stable per stream.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e.Payload)
}

type SymptomReport struct {
	EventType    string   `json:"event_type"`
	Timestamp    string   `json:"timestamp"`
	PatientID    string   `json:"patient_id"`
	Age          int      `json:"age"`
	Region       string   `json:"region"`
	Symptoms     []string `json:"symptoms"`
	Severity     string   `json:"severity"`
	DurationDays int      `json:"duration_days"`
	ReportedVia  string   `json:"reported_via"`
}

type ClinicVisit struct {
	EventType            string  `json:"event_type"`
	Timestamp            string  `json:"timestamp"`
	VisitID              string  `json:"visit_id"`
	PatientID            string  `json:"patient_id"`
	ClinicID             string  `json:"clinic_id"`
	Region               string  `json:"region"`
	VisitType            string  `json:"visit_type"`
	PrimaryComplaint     string  `json:"primary_complaint"`
	TemperatureF         float64 `json:"temperature_f"`
	DiagnosisCode        string  `json:"diagnosis_code"`
	PrescribedMedication bool    `json:"prescribed_medication"`
}

type EnvironmentalConditions struct {
	EventType       string  `json:"event_type"`
	Timestamp       string  `json:"timestamp"`
	Region          string  `json:"region"`
	StationID       string  `json:"station_id"`
	TemperatureF    float64 `json:"temperature_f"`
	HumidityPercent int     `json:"humidity_percent"`
	AirQualityIndex int     `json:"air_quality_index"`
	PollenCount     int     `json:"pollen_count"`
	UVIndex         int     `json:"uv_index"`
}
