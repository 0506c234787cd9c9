// Package status provides a thread-safe status tracker for the escapement
// daemon. The beat loop writes it; HTTP handlers read it.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker       string
	HTTPAddr     string
	SensePin     int
	KickPin      int
	SettingsPath string
	DisplayPort  string // empty = display disabled
	HeartbeatMs  int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Mode          string
	BPM           float64
	AvgBPM        float64
	TempC         float64
	TempOK        bool
	Compensated   bool
	Bucket        int // calibration bucket, or -1
	BucketSamples int
	TickTock      float64
	SlopeUs       float64
	InterceptUs   int64
	Beats         uint64 // passes processed since startup
	Dropped       uint64 // passes discarded as spurious
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Beat is the per-beat state the loop feeds into the tracker.
type Beat struct {
	Mode          string
	BPM           float64
	AvgBPM        float64
	TempC         float64
	TempOK        bool
	Compensated   bool
	Bucket        int
	BucketSamples int
	TickTock      float64
	SlopeUs       float64
	InterceptUs   int64
	Spurious      bool
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Bucket:    -1,
		},
	}
}

// Update records one processed beat. Called from the beat loop on every
// event.
func (t *Tracker) Update(b Beat) {
	t.mu.Lock()
	t.snap.Mode = b.Mode
	t.snap.BPM = b.BPM
	t.snap.AvgBPM = b.AvgBPM
	t.snap.TempC = b.TempC
	t.snap.TempOK = b.TempOK
	t.snap.Compensated = b.Compensated
	t.snap.Bucket = b.Bucket
	t.snap.BucketSamples = b.BucketSamples
	t.snap.TickTock = b.TickTock
	t.snap.SlopeUs = b.SlopeUs
	t.snap.InterceptUs = b.InterceptUs
	t.snap.Beats++
	if b.Spurious {
		t.snap.Dropped++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
