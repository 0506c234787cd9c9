// Package mqtt publishes escapement telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicTelemetry is the MQTT topic for periodic clock telemetry and mode
// transitions.
const TopicTelemetry = "clock/escapement/telemetry"

// TopicSystem is the MQTT topic for daemon lifecycle events.
const TopicSystem = "clock/escapement/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTelemetry sends a telemetry snapshot to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishTelemetry(t Telemetry) error

	// PublishSystem sends a daemon lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Telemetry is one snapshot of the clock's state, sent on heartbeats and on
// mode transitions.
type Telemetry struct {
	Timestamp   time.Time
	Event       string // "HEARTBEAT" or "MODE_CHANGE"
	Mode        string
	BPM         float64
	AvgBPM      float64
	TempC       float64
	TempOK      bool
	Compensated bool
	Bucket      int // calibration bucket, or -1
	Samples     int
	TickTock    float64
	SlopeUs     float64 // model slope, microseconds per degree C
	InterceptUs int64   // model intercept; 0 while unfitted
}

// SystemEvent is a daemon lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "SHUTDOWN"
	Reason    string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	Retained  bool   // whether the broker should retain the message
}

// telemetryPayload is the wire shape of a telemetry snapshot.
type telemetryPayload struct {
	Clock clockPayload `json:"clock"`
}

type clockPayload struct {
	Timestamp   string   `json:"timestamp"`
	Event       string   `json:"event"`
	Mode        string   `json:"mode"`
	BPM         float64  `json:"bpm"`
	AvgBPM      float64  `json:"avg_bpm"`
	TempC       *float64 `json:"temp_c,omitempty"`
	Compensated bool     `json:"compensated"`
	Bucket      *int     `json:"bucket,omitempty"`
	Samples     int      `json:"bucket_samples"`
	TickTock    float64  `json:"tick_tock_ratio"`
	SlopeUs     float64  `json:"model_slope_us_per_c"`
	InterceptUs int64    `json:"model_intercept_us"`
}

// FormatTelemetry creates the JSON payload for a telemetry snapshot.
// Temperature and bucket are omitted when no sensor reading is available.
func FormatTelemetry(t Telemetry) ([]byte, error) {
	p := telemetryPayload{
		Clock: clockPayload{
			Timestamp:   t.Timestamp.UTC().Format(time.RFC3339),
			Event:       t.Event,
			Mode:        t.Mode,
			BPM:         t.BPM,
			AvgBPM:      t.AvgBPM,
			Compensated: t.Compensated,
			Samples:     t.Samples,
			TickTock:    t.TickTock,
			SlopeUs:     t.SlopeUs,
			InterceptUs: t.InterceptUs,
		},
	}
	if t.TempOK {
		temp := t.TempC
		p.Clock.TempC = &temp
		if t.Bucket >= 0 {
			b := t.Bucket
			p.Clock.Bucket = &b
		}
	}
	return json.Marshal(p)
}

// systemPayload is the wire shape of a lifecycle event.
type systemPayload struct {
	System systemPayloadInner `json:"system"`
}

type systemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(systemPayload{
		System: systemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
