// Package escapement contains the beat-timing state machine and the
// temperature-indexed calibration engine for a pendulum/bendulum clock.
// This package has NO hardware dependencies (no GPIO, I2C, MQTT, or OS
// access). It is driven by one Event per detected pass of the resonator and
// persists its settings through the Store interface injected at construction.
package escapement

import "math"

// Mode is the operating phase of the controller. Exactly one is active at a
// time; transitions happen only on event boundaries.
type Mode int

const (
	ModeColdStart Mode = iota
	ModeWarmStart
	ModeCalibrateReset
	ModeCollect
	ModeModel
	ModeRun
	ModeCalRTC
)

// String returns the mode name used in logs and telemetry payloads.
func (m Mode) String() string {
	switch m {
	case ModeColdStart:
		return "COLD_START"
	case ModeWarmStart:
		return "WARM_START"
	case ModeCalibrateReset:
		return "CALIBRATE_RESET"
	case ModeCollect:
		return "COLLECT"
	case ModeModel:
		return "MODEL"
	case ModeRun:
		return "RUN"
	case ModeCalRTC:
		return "CAL_RTC"
	}
	return "UNKNOWN"
}

// Temp is a temperature in fixed-point degrees Celsius times 256.
// Bucket math and admission checks stay in this representation so the
// per-beat path never touches floating point.
type Temp int32

// TempNone means no usable temperature reading is available.
const TempNone Temp = math.MinInt32

// Celsius converts a reading to degrees for display. Returns 0 for TempNone;
// callers that care should check first.
func (t Temp) Celsius() float64 {
	if t == TempNone {
		return 0
	}
	return float64(t) / 256
}

// Calibration range and protocol constants. The bucket range covers
// 13.0C..38.0C in half-degree steps, matching the original hardware.
const (
	MinTemp    = 13                      // lowest bucketed temperature, degrees C
	MaxTemp    = 38                      // highest bucketed temperature, degrees C
	NumBuckets = 2 * (MaxTemp - MinTemp) // one bucket per half degree

	// TargetWarmup is how many beats WARM_START runs before attempting a
	// model fit. The resonator is usually disturbed by the starting push and
	// needs to settle into a regular swing.
	TargetWarmup = 32

	// TargetSamples is how many beats must be averaged into a bucket before
	// it counts as calibrated.
	TargetSamples = 2048

	// admissionTolerance is the maximum fixed-point distance from a bucket
	// center at which a beat is credited to that bucket (1/8 degree C).
	// Readings nominally inside the bucket but far from its center would
	// smear the bucket mean.
	admissionTolerance = 32

	// slopeScale is the fixed-point scaling of the fitted model slope.
	slopeScale = 4096

	// maxBeatMicros is the longest plausible beat. No supported resonator
	// beats slower than once per five seconds; anything longer is a missed
	// pass or sensing glitch and is discarded.
	maxBeatMicros = 5_000_000

	// tenthsPerDay is the number of tenths of a second in a day, the unit in
	// which the RTC bias and the manual speed adjustment are kept.
	tenthsPerDay = 864000
)

// BucketOutOfRange marks a temperature outside the calibrated range (or an
// unavailable sensor while compensation is active).
const BucketOutOfRange = -1

// SettingsTag marks a persisted settings block as written by this program.
const SettingsTag = 0xA1CF

// CalibrationEntry is the running average of observed beat duration for one
// temperature bucket. Count starts at 1 (no samples); the first sample sets
// Mean directly. Count > TargetSamples means the bucket is complete.
type CalibrationEntry struct {
	Mean  int64 // microseconds; meaningless until Count > 1
	Count int32
}

// Table is the per-bucket calibration state, indexed by bucket.
type Table [NumBuckets]CalibrationEntry

// Settings is the persistent parameter block. It is owned exclusively by the
// Controller and written through the Store whenever a bucket completes or a
// setter is invoked.
type Settings struct {
	Bias        int32 // RTC speed correction, tenths of a second per day
	ManualAdj   int32 // manual speed trim, tenths of a second per day
	Compensated bool  // temperature compensation active
	Table       Table
}

// DefaultSettings returns the all-defaults block used on cold start or when
// the persisted block fails validation.
func DefaultSettings() Settings {
	var s Settings
	s.Table.Reset()
	return s
}

// LinearModel is the fitted line of beat duration versus temperature.
// Slope is scaled by slopeScale so Evaluate is pure integer arithmetic.
// Intercept == 0 means "not yet fitted".
type LinearModel struct {
	Slope     int64 // microseconds per fixed-point degree, times slopeScale
	Intercept int64 // microseconds
}

// Valid reports whether the model has been fitted.
func (m LinearModel) Valid() bool {
	return m.Intercept != 0
}

// Evaluate returns the modeled beat duration at the given temperature.
func (m LinearModel) Evaluate(temp Temp) int64 {
	return m.Slope*int64(temp)/slopeScale + m.Intercept
}

// SlopePerDegree returns the slope in microseconds per degree C, for
// diagnostics.
func (m LinearModel) SlopePerDegree() float64 {
	return float64(m.Slope) * 256 / slopeScale
}

// Event is one detected pass of the resonator.
type Event struct {
	// Timestamp is a monotonic clock reading in microseconds. Timestamps are
	// strictly increasing across events.
	Timestamp uint64

	// RawInterval is the event source's own measurement of microseconds
	// since the previous pass, when it has one. Zero or negative means
	// "derive it from the timestamp delta".
	RawInterval int64

	// Temp is the temperature at the time of the pass, or TempNone.
	Temp Temp
}

// Store persists the settings block. Load returns false when no valid block
// exists (missing, short, or wrong format tag). Save is synchronous and
// all-or-nothing from the controller's perspective; implementations handle
// and report their own failures.
type Store interface {
	Load() (Settings, bool)
	Save(Settings)
}
