package escapement

// Reset returns every bucket to its uncalibrated state: one (empty) sample
// slot and a meaningless mean.
func (t *Table) Reset() {
	for i := range t {
		t[i] = CalibrationEntry{Mean: 0, Count: 1}
	}
}

// Record folds one observed beat duration into the bucket's running average.
// The first sample sets the mean directly (there is no prior average to
// blend with); later samples apply the incremental update
// mean += (d - mean) / count, a numerically stable cumulative moving average
// that needs only one integer division per beat and no unbounded sums.
// Callers must not record into a complete bucket.
func (t *Table) Record(ix int, micros int64) {
	e := &t[ix]
	if e.Count == 1 {
		e.Mean = micros
		e.Count = 2
		return
	}
	e.Mean += (micros - e.Mean) / int64(e.Count)
	e.Count++
}

// Sanitize forces every entry back into the representable range: a count
// below 1 resets the entry, a count past the completion threshold clamps to
// it. A loaded block can carry anything the storage handed back, and Record
// divides by the count.
func (t *Table) Sanitize() {
	for i := range t {
		if t[i].Count < 1 {
			t[i] = CalibrationEntry{Mean: 0, Count: 1}
		} else if t[i].Count > TargetSamples+1 {
			t[i].Count = TargetSamples + 1
		}
	}
}

// Complete reports whether bucket ix has accumulated its target sample count.
func (t *Table) Complete(ix int) bool {
	return t[ix].Count > TargetSamples
}

// Samples returns the number of beats accumulated into bucket ix.
func (t *Table) Samples(ix int) int {
	return int(t[ix].Count) - 1
}
