package escapement

// correctedDuration rescales a raw interval measured by the host's real-time
// clock by the persistent bias. Bias is the number of tenths of a second per
// day the RTC must be compensated to read true; positive bias means the
// RTC's "microseconds" run short. Rounding is half-up: half the divisor is
// added before the integer division.
func correctedDuration(raw int64, bias int32) int64 {
	return raw + (int64(bias)*raw+tenthsPerDay/2)/tenthsPerDay
}

// bucketOf maps a temperature reading to a calibration bucket index, or
// BucketOutOfRange. With compensation disabled every beat is attributed to
// bucket 0.
func bucketOf(temp Temp, compensated bool) int {
	if !compensated {
		return 0
	}
	if temp == TempNone {
		return BucketOutOfRange
	}
	// Round to the nearest half-degree step, then offset from MinTemp.
	ix := int((temp+64)/128) - 2*MinTemp
	if ix < 0 || ix >= NumBuckets {
		return BucketOutOfRange
	}
	return ix
}

// bucketCenter returns the fixed-point temperature at the center of bucket ix.
func bucketCenter(ix int) Temp {
	return Temp((2*MinTemp + ix) * 128)
}

// withinAdmission reports whether a reading is close enough to the center of
// bucket ix for the beat to be credited to the bucket's average.
func withinAdmission(temp Temp, ix int) bool {
	d := int64(temp) - int64(bucketCenter(ix))
	if d < 0 {
		d = -d
	}
	return d <= admissionTolerance
}

// applyTrim applies the manual speed adjustment (tenths of a second per day)
// to a beat duration. The division is chained (864 then 1000, jointly
// tenthsPerDay) so the intermediate product stays small even on narrow
// integer types.
func applyTrim(micros int64, adj int32) int64 {
	if adj == 0 {
		return micros
	}
	return micros + (micros/864)*int64(adj)/1000
}
