package escapement

// Controller owns the operating mode, the beat counters, the last two event
// timestamps, and the persistent settings block, and orchestrates the bias
// corrector, bucketer, calibration table, and regression model on every
// detected pass of the resonator.
//
// The controller is driven synchronously, one call per physical event, and is
// not safe for concurrent use.
type Controller struct {
	store    Store
	settings Settings
	model    LinearModel

	mode          Mode
	sensorPresent bool
	beatCount     int

	lastTime uint64 // timestamp of the most recent event, 0 before the first
	prevTime uint64 // timestamp of the event before that

	tick       bool  // parity of the next beat, for diagnostics only
	tickMicros int64 // duration of the last even beat
	tockMicros int64 // duration of the last odd beat
	lastBeat   int64 // last nonzero duration returned

	temp   Temp
	bucket int
}

// New creates a Controller that persists through the given store. The store
// may be nil, in which case settings live only for the process lifetime.
func New(store Store) *Controller {
	return &Controller{store: store, bucket: BucketOutOfRange, temp: TempNone}
}

// Enable loads or defaults the settings block and chooses the initial mode:
// a valid block whose compensation mode matches sensor presence resumes with
// WARM_START; a valid block with a mismatch forces CALIBRATE_RESET (which
// immediately chains to WARM_START); a missing or invalid block, or
// forceColdStart, does a full COLD_START. Returns the resulting mode.
func (c *Controller) Enable(forceColdStart, sensorPresent bool) Mode {
	c.sensorPresent = sensorPresent
	c.tick = true
	c.tickMicros, c.tockMicros, c.lastBeat = 0, 0, 0
	c.lastTime, c.prevTime = 0, 0
	c.beatCount = 0
	c.temp = TempNone
	c.bucket = BucketOutOfRange
	c.model = LinearModel{}

	if !forceColdStart && c.store != nil {
		if s, ok := c.store.Load(); ok {
			c.settings = s
			c.settings.Table.Sanitize()
			if c.settings.Compensated != sensorPresent {
				c.setMode(ModeCalibrateReset)
			} else {
				c.setMode(ModeWarmStart)
			}
			return c.mode
		}
	}
	c.settings = DefaultSettings()
	c.setMode(ModeColdStart)
	return c.mode
}

// ProcessEvent processes one detected pass and returns the beat duration in
// microseconds that callers should use to advance a time-of-day display.
// The very first event establishes the timing baseline and returns 0; a
// spurious over-long interval also returns 0 and updates no calibration
// state. Callers cannot (and need not) tell the two zeros apart.
func (c *Controller) ProcessEvent(ev Event) int64 {
	if c.lastTime == 0 {
		c.lastTime = ev.Timestamp
		c.observe(ev.Temp)
		if c.mode == ModeColdStart {
			c.setMode(ModeWarmStart)
		}
		return 0
	}

	raw := ev.RawInterval
	if raw <= 0 {
		raw = int64(ev.Timestamp - c.lastTime)
	}
	c.observe(ev.Temp)

	corrected := correctedDuration(raw, c.settings.Bias)
	if corrected > maxBeatMicros {
		// Can't be a real beat. Drop the sample: counters and the table are
		// untouched, but the timestamps advance so the next interval is
		// measured from this pass.
		c.advance(ev.Timestamp, 0)
		return 0
	}

	out := corrected
	switch c.mode {
	case ModeColdStart:
		c.setMode(ModeWarmStart)

	case ModeWarmStart:
		c.beatCount++
		if c.beatCount >= TargetWarmup {
			c.setMode(ModeModel)
		}

	case ModeCollect:
		if c.bucket == BucketOutOfRange {
			break
		}
		if c.settings.Table.Complete(c.bucket) {
			c.setMode(ModeRun)
			break
		}
		// Without compensation there is no reading to measure distance from;
		// every beat feeds the single bucket.
		if !c.settings.Compensated || withinAdmission(c.temp, c.bucket) {
			c.settings.Table.Record(c.bucket, corrected)
			if c.settings.Table.Complete(c.bucket) {
				c.persist()
				c.setMode(ModeModel)
			}
		}

	case ModeModel:
		if m, ok := fitModel(&c.settings.Table); ok {
			c.model = m
			c.settings.ManualAdj = 0
			c.setMode(ModeRun)
		} else {
			c.setMode(ModeCollect)
		}

	case ModeRun:
		switch {
		case c.bucket == BucketOutOfRange:
			// Sensor gone or temperature outside the calibrated range:
			// fall back to the measured duration.
		case !c.model.Valid():
			c.setMode(ModeModel)
		case !c.settings.Table.Complete(c.bucket):
			c.setMode(ModeCollect)
		default:
			out = applyTrim(c.model.Evaluate(c.temp), c.settings.ManualAdj)
		}

	case ModeCalRTC:
		// RTC calibration: report the corrected measurement and leave the
		// calibration state alone until the mode is changed explicitly.
	}

	c.advance(ev.Timestamp, out)
	return out
}

// observe records the temperature and bucket for this event.
func (c *Controller) observe(temp Temp) {
	c.temp = temp
	c.bucket = bucketOf(temp, c.settings.Compensated)
}

// advance rolls the per-beat bookkeeping forward.
func (c *Controller) advance(ts uint64, beat int64) {
	if beat != 0 {
		if c.tick {
			c.tickMicros = beat
		} else {
			c.tockMicros = beat
		}
		c.lastBeat = beat
	}
	c.tick = !c.tick
	c.prevTime = c.lastTime
	c.lastTime = ts
}

// setMode performs the entry actions for a mode and switches to it.
// CALIBRATE_RESET is an entry action rather than a resting state: it wipes
// calibration progress and chains straight to WARM_START without consuming a
// beat.
func (c *Controller) setMode(m Mode) {
	switch m {
	case ModeColdStart:
		c.mode = ModeColdStart
		c.settings.Bias = 0
		c.settings.ManualAdj = 0
		c.settings.Compensated = c.sensorPresent
		c.settings.Table.Reset()
		c.model = LinearModel{}

	case ModeWarmStart:
		c.mode = ModeWarmStart
		c.beatCount = 0
		c.settings.Compensated = c.sensorPresent

	case ModeCalibrateReset:
		c.settings.Table.Reset()
		c.settings.ManualAdj = 0
		c.model = LinearModel{}
		c.setMode(ModeWarmStart)

	default:
		c.mode = m
	}
}

// SetMode switches the controller mode explicitly. Used by the command
// surface to start RTC calibration (ModeCalRTC), return to normal operation,
// or request a full recalibration (ModeCalibrateReset).
func (c *Controller) SetMode(m Mode) {
	c.setMode(m)
}

func (c *Controller) persist() {
	if c.store != nil {
		c.store.Save(c.settings)
	}
}

// Mode returns the current operating mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Compensated reports whether temperature compensation is active.
func (c *Controller) Compensated() bool {
	return c.settings.Compensated
}

// IsTick reports whether the last processed beat was an even ("tick") beat.
func (c *Controller) IsTick() bool {
	return !c.tick
}

// Temperature returns the reading observed on the most recent event.
func (c *Controller) Temperature() Temp {
	return c.temp
}

// Bucket returns the calibration bucket of the most recent event, or
// BucketOutOfRange.
func (c *Controller) Bucket() int {
	return c.bucket
}

// BucketSamples returns the number of beats collected so far for the current
// bucket, or 0 when no bucket applies.
func (c *Controller) BucketSamples() int {
	if c.bucket == BucketOutOfRange {
		return 0
	}
	return c.settings.Table.Samples(c.bucket)
}

// BeatDuration returns the last nonzero duration ProcessEvent produced.
func (c *Controller) BeatDuration() int64 {
	return c.lastBeat
}

// CurrentBPM returns beats per minute derived from the last two event
// timestamps, or 0 before two events have been seen.
func (c *Controller) CurrentBPM() float64 {
	if c.lastTime == 0 || c.prevTime == 0 {
		return 0
	}
	d := applyTrim(correctedDuration(int64(c.lastTime-c.prevTime), c.settings.Bias), c.settings.ManualAdj)
	if d <= 0 {
		return 0
	}
	return 60e6 / float64(d)
}

// AverageBPM returns beats per minute from the fitted model at the current
// temperature, falling back to the last returned duration when no model
// applies. Returns 0 when neither is available.
func (c *Controller) AverageBPM() float64 {
	d := c.lastBeat
	if c.model.Valid() && c.temp != TempNone {
		d = applyTrim(c.model.Evaluate(c.temp), c.settings.ManualAdj)
	}
	if d <= 0 {
		return 0
	}
	return 60e6 / float64(d)
}

// TickTockRatio returns the ratio of the last even beat duration to the last
// odd one, or 0 until both have been observed. A healthy resonator sits very
// close to 1.
func (c *Controller) TickTockRatio() float64 {
	if c.tickMicros == 0 || c.tockMicros == 0 {
		return 0
	}
	return float64(c.tickMicros) / float64(c.tockMicros)
}

// Model returns the current fitted model (possibly unset).
func (c *Controller) Model() LinearModel {
	return c.model
}

// Bias returns the RTC correction in tenths of a second per day.
func (c *Controller) Bias() int32 {
	return c.settings.Bias
}

// SetBias sets the RTC correction and persists immediately.
func (c *Controller) SetBias(tenths int32) {
	c.settings.Bias = tenths
	c.persist()
}

// IncrBias adds to the RTC correction, persists, and returns the new value.
func (c *Controller) IncrBias(tenths int32) int32 {
	c.settings.Bias += tenths
	c.persist()
	return c.settings.Bias
}

// ManualAdjustment returns the manual speed trim in tenths of a second per
// day.
func (c *Controller) ManualAdjustment() int32 {
	return c.settings.ManualAdj
}

// SetManualAdjustment sets the manual speed trim and persists immediately.
func (c *Controller) SetManualAdjustment(tenths int32) {
	c.settings.ManualAdj = tenths
	c.persist()
}

// IncrManualAdjustment adds to the manual speed trim, persists, and returns
// the new value.
func (c *Controller) IncrManualAdjustment(tenths int32) int32 {
	c.settings.ManualAdj += tenths
	c.persist()
	return c.settings.ManualAdj
}
