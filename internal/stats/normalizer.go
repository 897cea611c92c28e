package stats

import (
	"math"

	"github.com/spf13/cast"
)

// DefaultSigmaWindow is the trailing sample count for the rolling deviation.
const DefaultSigmaWindow = 14

// minSigmaSamples is the smallest window the deviation is defined for.
const minSigmaSamples = 2

// NormalizerOptions toggle the two anomaly rules independently.
// MaxSigmas <= 0 disables sigma filtering; SigmaWindow <= 0 falls back to
// DefaultSigmaWindow.
type NormalizerOptions struct {
	ConstantlyGrowing bool
	MaxSigmas         float64
	SigmaWindow       int
}

// Normalizer turns a newest-first sequence of counter snapshots into
// period deltas, marks anomalous deltas, and computes error-tolerant
// tailing aggregates. Upstream counters occasionally reset or spike;
// anomalous periods are excluded from arithmetic rather than propagated.
type Normalizer struct {
	values   []*float64
	deltas   []*float64
	abnormal []bool
}

// NewNormalizer expects values ordered most-recent-first (oldest last).
// Nil entries are tolerated; deltas touching them stay undefined.
func NewNormalizer(values []*float64, opts NormalizerOptions) *Normalizer {
	n := &Normalizer{
		values:   values,
		deltas:   make([]*float64, len(values)),
		abnormal: make([]bool, len(values)),
	}
	window := opts.SigmaWindow
	if window <= 0 {
		window = DefaultSigmaWindow
	}

	for i := 0; i < len(values); i++ {
		if i == len(values)-1 || values[i] == nil || values[i+1] == nil {
			continue
		}
		d := *values[i] - *values[i+1]
		n.deltas[i] = &d

		if opts.ConstantlyGrowing && d < 0 {
			n.abnormal[i] = true
			continue
		}
		if opts.MaxSigmas > 0 {
			if dev, ok := n.rollingStd(i, window); ok && math.Abs(d)/dev > opts.MaxSigmas {
				n.abnormal[i] = true
			}
		}
	}
	return n
}

// rollingStd is the sample standard deviation of the raw values in the
// trailing window starting at index i. Undefined with fewer than two samples.
func (n *Normalizer) rollingStd(i, window int) (float64, bool) {
	end := i + window
	if end > len(n.values) {
		end = len(n.values)
	}
	var sum float64
	var count int
	for _, v := range n.values[i:end] {
		if v == nil {
			continue
		}
		sum += *v
		count++
	}
	if count < minSigmaSamples {
		return 0, false
	}
	mean := sum / float64(count)
	var sq float64
	for _, v := range n.values[i:end] {
		if v == nil {
			continue
		}
		sq += (*v - mean) * (*v - mean)
	}
	std := math.Sqrt(sq / float64(count-1))
	if std == 0 {
		return 0, false
	}
	return std, true
}

// Deltas returns the period-over-period changes, newest first.
// The oldest delta is always nil: it has no prior sample.
func (n *Normalizer) Deltas() []*float64 {
	return n.deltas
}

// Abnormal reports which deltas were excluded by the anomaly rules.
func (n *Normalizer) Abnormal() []bool {
	return n.abnormal
}

// TailingSum sums the non-abnormal deltas among the count most recent ones,
// after skipping offset deltas. Abnormal deltas contribute nothing (they are
// not zero-filled). When maxErrors is non-nil and the window holds more
// abnormal deltas than that, the result is nil: the caller must be able to
// tell "computed zero" from "could not compute".
func (n *Normalizer) TailingSum(count, offset int, maxErrors *int) *float64 {
	sum, _, ok := n.tailing(count, offset, maxErrors)
	if !ok {
		return nil
	}
	return &sum
}

// TailingMean averages instead of summing; nil when no delta qualifies.
func (n *Normalizer) TailingMean(count, offset int, maxErrors *int) *float64 {
	sum, included, ok := n.tailing(count, offset, maxErrors)
	if !ok || included == 0 {
		return nil
	}
	mean := sum / float64(included)
	return &mean
}

// TailingSumInt64 is TailingSum cast to a whole-number counter.
func (n *Normalizer) TailingSumInt64(count, offset int, maxErrors *int) *int64 {
	v := n.TailingSum(count, offset, maxErrors)
	if v == nil {
		return nil
	}
	cast64 := cast.ToInt64(*v)
	return &cast64
}

// TailingMeanInt64 is TailingMean cast to a whole-number counter.
func (n *Normalizer) TailingMeanInt64(count, offset int, maxErrors *int) *int64 {
	v := n.TailingMean(count, offset, maxErrors)
	if v == nil {
		return nil
	}
	cast64 := cast.ToInt64(*v)
	return &cast64
}

func (n *Normalizer) tailing(count, offset int, maxErrors *int) (sum float64, included int, ok bool) {
	if offset < 0 || count <= 0 {
		return 0, 0, false
	}
	start := offset
	end := offset + count
	if start > len(n.deltas) {
		start = len(n.deltas)
	}
	if end > len(n.deltas) {
		end = len(n.deltas)
	}

	var failures int
	for i := start; i < end; i++ {
		if n.abnormal[i] {
			failures++
		}
	}
	if maxErrors != nil && failures > *maxErrors {
		return 0, 0, false
	}

	for i := start; i < end; i++ {
		if n.abnormal[i] || n.deltas[i] == nil {
			continue
		}
		sum += *n.deltas[i]
		included++
	}
	return sum, included, true
}
