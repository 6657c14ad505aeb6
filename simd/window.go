// Package simd provides float64 kernels for peak-map range queries: sorted-window
// bounds and unrolled intensity sums.
package simd

import "sort"

// WindowBounds returns the half-open index range [i, j) of sorted whose values lie in
// the closed interval [lo, hi]. sorted must be ascending.
func WindowBounds(sorted []float64, lo, hi float64) (int, int) {
	if lo > hi {
		return 0, 0
	}
	i := sort.SearchFloat64s(sorted, lo)
	j := i + sort.Search(len(sorted)-i, func(k int) bool { return sorted[i+k] > hi })
	return i, j
}

// Sum adds up x (4-way unroll).
func Sum(x []float64) float64 {
	var s0, s1, s2, s3 float64
	n := len(x) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += x[i]
		s1 += x[i+1]
		s2 += x[i+2]
		s3 += x[i+3]
	}
	for i := n; i < len(x); i++ {
		s0 += x[i]
	}
	return (s0 + s1) + (s2 + s3)
}

// SumMasked adds up weights[i] for every i with lo <= keys[i] <= hi. keys may be unsorted.
func SumMasked(keys, weights []float64, lo, hi float64) float64 {
	n := min(len(keys), len(weights))
	var sum float64
	for i := 0; i < n; i++ {
		if k := keys[i]; k >= lo && k <= hi {
			sum += weights[i]
		}
	}
	return sum
}

// SumWindow adds up intensity over the peaks whose m/z lies in [lo, hi].
// Sorted m/z arrays take the binary-search path; anything else is scanned.
func SumWindow(mz, intensity []float64, lo, hi float64) float64 {
	if len(mz) != len(intensity) || len(mz) == 0 || lo > hi {
		return 0
	}
	if !sort.Float64sAreSorted(mz) {
		return SumMasked(mz, intensity, lo, hi)
	}
	i, j := WindowBounds(mz, lo, hi)
	return Sum(intensity[i:j])
}
