package web

import (
	"encoding/json"
	"time"

	"github.com/dehne/escapement/internal/status"
)

// StatusJSON is the JSON representation of the daemon status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Mode          string     `json:"mode"`
	BPM           float64    `json:"bpm"`
	AvgBPM        float64    `json:"avg_bpm"`
	TickTock      float64    `json:"tick_tock"`
	Beats         uint64     `json:"beats"`
	Dropped       uint64     `json:"dropped"`
	Calibration   CalJSON    `json:"calibration"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// CalJSON is the JSON representation of calibration state.
type CalJSON struct {
	TempC         *float64 `json:"temp_c,omitempty"`
	Compensated   bool     `json:"compensated"`
	Bucket        int      `json:"bucket"`
	BucketSamples int      `json:"bucket_samples"`
	SlopeUs       float64  `json:"slope_us_per_degree"`
	InterceptUs   int64    `json:"intercept_us"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SensePin     int    `json:"sense_pin"`
	KickPin      int    `json:"kick_pin"`
	SettingsPath string `json:"settings_path"`
	DisplayPort  string `json:"display_port,omitempty"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
}

func formatJSON(snap status.Snapshot) []byte {
	mode := snap.Mode
	if mode == "" {
		mode = "UNKNOWN"
	}

	cal := CalJSON{
		Compensated:   snap.Compensated,
		Bucket:        snap.Bucket,
		BucketSamples: snap.BucketSamples,
		SlopeUs:       snap.SlopeUs,
		InterceptUs:   snap.InterceptUs,
	}
	if snap.TempOK {
		c := snap.TempC
		cal.TempC = &c
	}

	sj := StatusJSON{
		Status: StatusInner{
			Mode:          mode,
			BPM:           snap.BPM,
			AvgBPM:        snap.AvgBPM,
			TickTock:      snap.TickTock,
			Beats:         snap.Beats,
			Dropped:       snap.Dropped,
			Calibration:   cal,
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
			Timestamp:     snap.Now.UTC().Format(time.RFC3339),
			MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
			Config: ConfigJSON{
				SensePin:     snap.Config.SensePin,
				KickPin:      snap.Config.KickPin,
				SettingsPath: snap.Config.SettingsPath,
				DisplayPort:  snap.Config.DisplayPort,
				HeartbeatMs:  snap.Config.HeartbeatMs,
				Broker:       snap.Config.Broker,
				HTTPAddr:     snap.Config.HTTPAddr,
			},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
