package escapement

// fitModel fits a least-squares line of beat duration versus temperature
// across the complete buckets of the table. Each complete bucket contributes
// one (x, y) pair with x the bucket-center temperature (fixed point) and y
// the bucket's mean duration.
//
// The accumulation runs in float64: fitting happens once per calibration
// cycle, so floating point is acceptable here even though the per-beat
// evaluation path must not use it. The slope is truncated to an integer
// scaled by slopeScale so Evaluate stays in integer arithmetic.
func fitModel(t *Table) (LinearModel, bool) {
	var n, sumX, sumY, sumXX, sumXY float64
	for i := range t {
		if !t.Complete(i) {
			continue
		}
		x := float64(bucketCenter(i))
		y := float64(t[i].Mean)
		n++
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}
	if n == 0 {
		// Nothing calibrated yet; caller must keep collecting.
		return LinearModel{}, false
	}
	if n == 1 {
		// Flat model at the single known point.
		return LinearModel{Slope: 0, Intercept: int64(sumY)}, true
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / n
	return LinearModel{
		Slope:     int64(slope * slopeScale),
		Intercept: int64(intercept),
	}, true
}
