// Package percentile assigns weights to ordered density buckets by rank within
// their own distribution, for choropleth coloring.
package percentile

import (
	"fmt"
	"math"
	"sort"
)

// DefaultBuckets is the number of density classes used for home zipcodes.
const DefaultBuckets = 5

// Invalid marks a weight that could not be classified (NaN).
const Invalid = -1

// Thresholds returns the numBuckets-1 cut points of weights. The k-th cut
// point is the value at rank ceil(k/numBuckets * n) in the ascending order of
// the valid weights, so for five buckets these are the 20th, 40th, 60th and
// 80th percentiles. NaN weights do not take part. The result is nil when no
// weight is valid.
func Thresholds(weights []float64, numBuckets int) []float64 {
	numBuckets = bucketCount(numBuckets)

	sorted := make([]float64, 0, len(weights))
	for _, w := range weights {
		if !math.IsNaN(w) {
			sorted = append(sorted, w)
		}
	}
	n := len(sorted)
	if n == 0 {
		return nil
	}
	sort.Float64s(sorted)

	out := make([]float64, numBuckets-1)
	for k := 1; k < numBuckets; k++ {
		idx := (k*n+numBuckets-1)/numBuckets - 1
		idx = max(0, min(idx, n-1))
		out[k-1] = sorted[idx]
	}
	return out
}

// Classify returns the bucket of each weight, aligned by position. Buckets run
// from 0 (lowest) to numBuckets-1; a weight lands in the first bucket whose
// threshold it does not exceed. NaN weights are reported as Invalid. A
// numBuckets below one falls back to DefaultBuckets.
func Classify(weights []float64, numBuckets int) []int {
	numBuckets = bucketCount(numBuckets)
	out := make([]int, len(weights))
	thresholds := Thresholds(weights, numBuckets)

	for i, w := range weights {
		if math.IsNaN(w) {
			out[i] = Invalid
			continue
		}
		out[i] = bucketOf(w, thresholds)
	}
	return out
}

func bucketOf(w float64, thresholds []float64) int {
	for k, th := range thresholds {
		if w <= th {
			return k
		}
	}
	return len(thresholds)
}

func bucketCount(n int) int {
	if n < 1 {
		return DefaultBuckets
	}
	return n
}

// Range describes the weights that fell into one bucket.
type Range struct {
	Bucket int     `json:"bucket"`
	Label  string  `json:"label"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Ranges summarizes each bucket of weights for a legend. Buckets without
// members report a zero range.
func Ranges(weights []float64, numBuckets int) []Range {
	numBuckets = bucketCount(numBuckets)
	out := make([]Range, numBuckets)
	for k := range out {
		out[k] = Range{Bucket: k, Label: Label(k, numBuckets)}
	}

	for i, b := range Classify(weights, numBuckets) {
		if b == Invalid {
			continue
		}
		w := weights[i]
		r := &out[b]
		if r.Count == 0 || w < r.Min {
			r.Min = w
		}
		if r.Count == 0 || w > r.Max {
			r.Max = w
		}
		r.Count++
	}
	return out
}

// Label renders the percentile span of bucket k, e.g. "20-40%".
func Label(k, numBuckets int) string {
	numBuckets = bucketCount(numBuckets)
	return fmt.Sprintf("%d-%d%%", k*100/numBuckets, (k+1)*100/numBuckets)
}
