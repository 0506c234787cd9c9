package escapement

import "testing"

// memStore is a minimal in-process Store for controller tests.
type memStore struct {
	settings Settings
	valid    bool
	saves    int
}

func (s *memStore) Load() (Settings, bool) { return s.settings, s.valid }
func (s *memStore) Save(set Settings) {
	s.settings = set
	s.valid = true
	s.saves++
}

// feeder drives a controller with evenly spaced events.
type feeder struct {
	c      *Controller
	ts     uint64
	period uint64
}

func newFeeder(c *Controller, period uint64) *feeder {
	return &feeder{c: c, ts: 1_000_000, period: period}
}

// beat advances time by one period and processes an event at temp.
func (f *feeder) beat(temp Temp) int64 {
	f.ts += f.period
	return f.c.ProcessEvent(Event{Timestamp: f.ts, Temp: temp})
}

// start delivers the baseline-establishing first event.
func (f *feeder) start(temp Temp) int64 {
	return f.c.ProcessEvent(Event{Timestamp: f.ts, Temp: temp})
}

func TestEnableColdStartWhenStoreEmpty(t *testing.T) {
	c := New(&memStore{})
	if mode := c.Enable(false, true); mode != ModeColdStart {
		t.Fatalf("mode = %v, want COLD_START", mode)
	}
	if !c.Compensated() {
		t.Error("cold start with a sensor should enable compensation")
	}
	if c.Bias() != 0 {
		t.Errorf("bias = %d, want 0", c.Bias())
	}
}

func TestEnableForcedColdStartIgnoresStore(t *testing.T) {
	store := &memStore{valid: true}
	store.settings = DefaultSettings()
	store.settings.Bias = 100
	store.settings.Compensated = true

	c := New(store)
	if mode := c.Enable(true, true); mode != ModeColdStart {
		t.Fatalf("mode = %v, want COLD_START", mode)
	}
	if c.Bias() != 0 {
		t.Errorf("bias = %d, want 0 after forced cold start", c.Bias())
	}
}

func TestEnableWarmStartWhenSettingsMatch(t *testing.T) {
	store := &memStore{valid: true}
	store.settings = DefaultSettings()
	store.settings.Bias = 42
	store.settings.Compensated = true

	c := New(store)
	if mode := c.Enable(false, true); mode != ModeWarmStart {
		t.Fatalf("mode = %v, want WARM_START", mode)
	}
	if c.Bias() != 42 {
		t.Errorf("bias = %d, want 42 (preserved)", c.Bias())
	}
}

func TestEnableCompensationMismatchResetsCalibration(t *testing.T) {
	store := &memStore{valid: true}
	store.settings = DefaultSettings()
	store.settings.Compensated = true
	store.settings.Bias = 42
	store.settings.Table[3] = CalibrationEntry{Mean: 999_000, Count: 500}

	c := New(store)
	// Sensor is gone: stored compensated calibration no longer applies.
	if mode := c.Enable(false, false); mode != ModeWarmStart {
		t.Fatalf("mode = %v, want WARM_START (via CALIBRATE_RESET)", mode)
	}
	if c.Compensated() {
		t.Error("compensation should be off without a sensor")
	}
	if got := c.settings.Table[3]; got.Count != 1 || got.Mean != 0 {
		t.Errorf("table not cleared by calibrate reset: %+v", got)
	}
	if c.Bias() != 42 {
		t.Errorf("bias = %d, want 42 (calibrate reset keeps the RTC bias)", c.Bias())
	}
}

func TestEnableRecoversCorruptSampleCounts(t *testing.T) {
	// A tagged block can still carry out-of-range counts (bit rot, partial
	// overwrite, a misbehaving store). Recording into such a bucket must not
	// fault; Enable clamps each entry back into the valid range.
	store := &memStore{valid: true}
	store.settings = DefaultSettings()
	store.settings.Compensated = true
	store.settings.Table[14] = CalibrationEntry{Mean: 0, Count: 0}

	c := New(store)
	if mode := c.Enable(false, true); mode != ModeWarmStart {
		t.Fatalf("mode = %v, want WARM_START", mode)
	}

	temp := bucketCenter(14) // 20.0 C
	f := newFeeder(c, 1_000_000)
	f.start(temp)
	for i := 0; i < TargetWarmup; i++ {
		f.beat(temp)
	}
	f.beat(temp) // MODEL, fit fails
	if c.Mode() != ModeCollect {
		t.Fatalf("mode = %v, want COLLECT", c.Mode())
	}
	if got := c.BucketSamples(); got != 0 {
		t.Errorf("samples before recording = %d, want 0", got)
	}

	f.beat(temp)
	f.beat(temp)
	if got := c.BucketSamples(); got != 2 {
		t.Errorf("samples after two beats = %d, want 2", got)
	}
}

func TestFirstEventEstablishesBaseline(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)

	f := newFeeder(c, 1_000_000)
	if d := f.start(20 * 256); d != 0 {
		t.Errorf("first event returned %d, want 0", d)
	}
	if c.Mode() != ModeWarmStart {
		t.Errorf("mode after first event = %v, want WARM_START", c.Mode())
	}
}

func TestWarmupRunsToModelThenCollect(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)

	f := newFeeder(c, 1_000_000)
	f.start(20 * 256)
	for i := 0; i < TargetWarmup; i++ {
		if got := f.beat(20 * 256); got != 1_000_000 {
			t.Fatalf("warm-up beat %d returned %d, want raw 1000000", i, got)
		}
	}
	if c.Mode() != ModeModel {
		t.Fatalf("mode after %d warm-up beats = %v, want MODEL", TargetWarmup, c.Mode())
	}

	// No complete buckets yet, so the fit fails and collection begins.
	f.beat(20 * 256)
	if c.Mode() != ModeCollect {
		t.Fatalf("mode after failed fit = %v, want COLLECT", c.Mode())
	}
}

// runToCollect drives a fresh controller through warm-up into COLLECT.
func runToCollect(t *testing.T, c *Controller, f *feeder, temp Temp) {
	t.Helper()
	f.start(temp)
	for i := 0; i < TargetWarmup; i++ {
		f.beat(temp)
	}
	f.beat(temp) // MODEL, fit fails
	if c.Mode() != ModeCollect {
		t.Fatalf("setup: mode = %v, want COLLECT", c.Mode())
	}
}

func TestCollectFillsBucketPersistsAndRuns(t *testing.T) {
	store := &memStore{}
	c := New(store)
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	temp := bucketCenter(14) // 20.0 C
	runToCollect(t, c, f, temp)

	for i := 0; i < TargetSamples; i++ {
		f.beat(temp)
	}
	if c.Mode() != ModeModel {
		t.Fatalf("mode after filling bucket = %v, want MODEL", c.Mode())
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1 (persist on bucket completion)", store.saves)
	}
	if got := store.settings.Table[14]; got.Count != TargetSamples+1 || got.Mean != 1_000_000 {
		t.Errorf("persisted bucket 14 = %+v", got)
	}

	// Fit now succeeds on the single complete bucket; the flat model drives
	// RUN from the next event on.
	f.beat(temp)
	if c.Mode() != ModeRun {
		t.Fatalf("mode after successful fit = %v, want RUN", c.Mode())
	}
	if d := f.beat(temp); d != 1_000_000 {
		t.Errorf("RUN returned %d, want modeled 1000000", d)
	}
}

func TestCollectIgnoresOffCenterReadings(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	center := bucketCenter(14)
	runToCollect(t, c, f, center)

	// Inside the bucket but outside the admission tolerance: no sample.
	f.beat(center + admissionTolerance + 1)
	if got := c.settings.Table.Samples(14); got != 0 {
		t.Errorf("off-center reading recorded: %d samples", got)
	}

	// At the tolerance edge: recorded.
	f.beat(center + admissionTolerance)
	if got := c.settings.Table.Samples(14); got != 1 {
		t.Errorf("edge reading not recorded: %d samples", got)
	}
}

func TestCollectOutOfRangeIsNoOp(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)
	runToCollect(t, c, f, bucketCenter(14))

	if d := f.beat(50 * 256); d != 1_000_000 {
		t.Errorf("out-of-range beat returned %d, want raw duration", d)
	}
	if c.Mode() != ModeCollect {
		t.Errorf("mode = %v, want COLLECT (stay)", c.Mode())
	}
}

func TestRunFallsBackWhenBucketIncomplete(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	temp := bucketCenter(14)
	runToCollect(t, c, f, temp)
	for i := 0; i < TargetSamples; i++ {
		f.beat(temp)
	}
	f.beat(temp) // MODEL -> RUN
	if c.Mode() != ModeRun {
		t.Fatalf("setup: mode = %v, want RUN", c.Mode())
	}

	// Temperature moves to an uncalibrated bucket: this event still returns
	// the measured duration, and the next event lands in COLLECT.
	other := bucketCenter(20)
	if d := f.beat(other); d != 1_000_000 {
		t.Errorf("transition beat returned %d, want raw", d)
	}
	if c.Mode() != ModeCollect {
		t.Errorf("mode = %v, want COLLECT", c.Mode())
	}

	// Back at the calibrated bucket, COLLECT hands control straight back.
	f.beat(temp)
	if c.Mode() != ModeRun {
		t.Errorf("mode = %v, want RUN", c.Mode())
	}
}

func TestRunFallsBackOnSensorLoss(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	temp := bucketCenter(14)
	runToCollect(t, c, f, temp)
	for i := 0; i < TargetSamples; i++ {
		f.beat(temp)
	}
	f.beat(temp) // MODEL -> RUN

	// Sensor becomes unavailable mid-run: raw duration, mode unchanged.
	if d := f.beat(TempNone); d != 1_000_000 {
		t.Errorf("sensor-loss beat returned %d, want raw", d)
	}
	if c.Mode() != ModeRun {
		t.Errorf("mode = %v, want RUN", c.Mode())
	}
}

func TestRunAppliesManualTrim(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	temp := bucketCenter(14)
	runToCollect(t, c, f, temp)
	for i := 0; i < TargetSamples; i++ {
		f.beat(temp)
	}
	f.beat(temp) // MODEL -> RUN
	f.beat(temp) // first RUN beat

	c.SetManualAdjustment(864) // 86.4 s/day fast
	want := applyTrim(1_000_000, 864)
	if d := f.beat(temp); d != want {
		t.Errorf("trimmed beat = %d, want %d", d, want)
	}
}

func TestSpuriousIntervalDiscarded(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	temp := bucketCenter(14)
	runToCollect(t, c, f, temp)
	f.beat(temp)
	samplesBefore := c.settings.Table.Samples(14)

	// A 6-second gap: beyond any supported resonator.
	f.ts += 6_000_000
	if d := c.ProcessEvent(Event{Timestamp: f.ts, Temp: temp}); d != 0 {
		t.Errorf("spurious event returned %d, want 0", d)
	}
	if got := c.settings.Table.Samples(14); got != samplesBefore {
		t.Errorf("spurious event changed table: %d -> %d samples", samplesBefore, got)
	}
	if c.Mode() != ModeCollect {
		t.Errorf("mode = %v, want COLLECT", c.Mode())
	}

	// The next normal beat measures from the spurious pass, not before it.
	if d := f.beat(temp); d != 1_000_000 {
		t.Errorf("beat after spurious = %d, want 1000000", d)
	}
}

func TestSpuriousDoesNotAdvanceWarmup(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)
	f.start(20 * 256)

	for i := 0; i < TargetWarmup-1; i++ {
		f.beat(20 * 256)
	}
	// One spurious interval right before the warm-up target.
	f.ts += 10_000_000
	c.ProcessEvent(Event{Timestamp: f.ts, Temp: 20 * 256})
	if c.Mode() != ModeWarmStart {
		t.Fatalf("mode = %v, want WARM_START (spurious beat must not count)", c.Mode())
	}
	f.beat(20 * 256)
	if c.Mode() != ModeModel {
		t.Errorf("mode = %v, want MODEL", c.Mode())
	}
}

func TestUncompensatedUsesSingleBucket(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, false) // no sensor
	f := newFeeder(c, 1_000_000)
	runToCollect(t, c, f, TempNone)

	f.beat(TempNone)
	if got := c.Bucket(); got != 0 {
		t.Errorf("bucket = %d, want 0 without compensation", got)
	}
	if got := c.settings.Table.Samples(0); got != 1 {
		t.Errorf("samples = %d, want 1", got)
	}
}

func TestCalRTCBypassesCalibration(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)
	f.start(20 * 256)
	c.SetMode(ModeCalRTC)
	c.SetBias(864)

	want := correctedDuration(1_000_000, 864)
	for i := 0; i < 5; i++ {
		if d := f.beat(bucketCenter(14)); d != want {
			t.Fatalf("CAL_RTC beat = %d, want %d", d, want)
		}
	}
	if c.Mode() != ModeCalRTC {
		t.Errorf("mode = %v, want CAL_RTC (stays)", c.Mode())
	}
	if got := c.settings.Table.Samples(14); got != 0 {
		t.Errorf("CAL_RTC recorded %d samples", got)
	}
}

func TestCalibrateResetIsIdempotent(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)
	runToCollect(t, c, f, bucketCenter(14))
	f.beat(bucketCenter(14))

	c.SetMode(ModeCalibrateReset)
	once := c.settings
	onceModel := c.model

	c.SetMode(ModeCalibrateReset)
	if c.settings != once {
		t.Error("second calibrate reset changed settings")
	}
	if c.model != onceModel || c.model.Valid() {
		t.Error("second calibrate reset changed the model, or model still set")
	}
	if c.Mode() != ModeWarmStart {
		t.Errorf("mode = %v, want WARM_START", c.Mode())
	}
}

func TestSettersPersistImmediately(t *testing.T) {
	store := &memStore{}
	c := New(store)
	c.Enable(false, true)

	c.SetBias(100)
	if store.saves != 1 || store.settings.Bias != 100 {
		t.Errorf("SetBias: saves=%d bias=%d", store.saves, store.settings.Bias)
	}
	if got := c.IncrBias(-30); got != 70 {
		t.Errorf("IncrBias = %d, want 70", got)
	}
	if store.saves != 2 || store.settings.Bias != 70 {
		t.Errorf("IncrBias: saves=%d bias=%d", store.saves, store.settings.Bias)
	}

	c.SetManualAdjustment(50)
	if got := c.IncrManualAdjustment(10); got != 60 {
		t.Errorf("IncrManualAdjustment = %d, want 60", got)
	}
	if store.saves != 4 || store.settings.ManualAdj != 60 {
		t.Errorf("manual adj: saves=%d adj=%d", store.saves, store.settings.ManualAdj)
	}
}

func TestBPMAccessors(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)
	f := newFeeder(c, 1_000_000)

	if c.CurrentBPM() != 0 {
		t.Error("current BPM should be 0 before any interval")
	}
	f.start(20 * 256)
	f.beat(20 * 256)
	if got := c.CurrentBPM(); got < 59.9 || got > 60.1 {
		t.Errorf("current BPM = %v, want ~60", got)
	}
	if got := c.AverageBPM(); got < 59.9 || got > 60.1 {
		t.Errorf("average BPM = %v, want ~60", got)
	}
}

func TestTickTockRatio(t *testing.T) {
	c := New(&memStore{})
	c.Enable(false, true)

	ts := uint64(1_000_000)
	c.ProcessEvent(Event{Timestamp: ts, Temp: 20 * 256})
	if c.TickTockRatio() != 0 {
		t.Error("ratio should be 0 before both parities seen")
	}
	ts += 1_000_100 // tick
	c.ProcessEvent(Event{Timestamp: ts, Temp: 20 * 256})
	ts += 999_900 // tock
	c.ProcessEvent(Event{Timestamp: ts, Temp: 20 * 256})

	want := 1_000_100.0 / 999_900.0
	if got := c.TickTockRatio(); got < want-1e-9 || got > want+1e-9 {
		t.Errorf("ratio = %v, want %v", got, want)
	}
}
