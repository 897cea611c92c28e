package models

import "sds/internal/stats"

// Accessor helpers backing the static HistoryFields tables. Each converts
// between a section's typed storage and the float64 view the backfill engine
// works in.

// windowMaxSigmas bounds how far a daily delta may stray from the trailing
// deviation before it is excluded from window aggregates.
const windowMaxSigmas = 2

// historyWindowSum sums the count most recent daily deltas of a history,
// excluding anomalous periods. Nil when the history is too short or the
// window holds more anomalies than maxErrors.
func historyWindowSum(history []*int64, growing bool, count, maxErrors int) *int64 {
	if len(history) < 2 {
		return nil
	}
	values := make([]*float64, len(history))
	for i, v := range history {
		if v != nil {
			f := float64(*v)
			values[i] = &f
		}
	}
	n := stats.NewNormalizer(values, stats.NormalizerOptions{
		ConstantlyGrowing: growing,
		MaxSigmas:         windowMaxSigmas,
	})
	return n.TailingSumInt64(count, 0, &maxErrors)
}

func int64Value(p **int64) func() (float64, bool) {
	return func() (float64, bool) {
		if *p == nil {
			return 0, false
		}
		return float64(**p), true
	}
}

func floatValue(p **float64) func() (float64, bool) {
	return func() (float64, bool) {
		if *p == nil {
			return 0, false
		}
		return **p, true
	}
}

func int64History(p *[]*int64) (get func() []*float64, set func([]*float64)) {
	get = func() []*float64 {
		out := make([]*float64, len(*p))
		for i, v := range *p {
			if v != nil {
				f := float64(*v)
				out[i] = &f
			}
		}
		return out
	}
	set = func(values []*float64) {
		if values == nil {
			*p = nil
			return
		}
		out := make([]*int64, len(values))
		for i, v := range values {
			if v != nil {
				n := int64(*v)
				out[i] = &n
			}
		}
		*p = out
	}
	return get, set
}

func floatHistory(p *[]*float64) (get func() []*float64, set func([]*float64)) {
	get = func() []*float64 {
		return *p
	}
	set = func(values []*float64) {
		*p = values
	}
	return get, set
}

func int64Raw(p *map[string]int64) (get func() map[string]float64, set func(map[string]float64)) {
	get = func() map[string]float64 {
		out := make(map[string]float64, len(*p))
		for k, v := range *p {
			out[k] = float64(v)
		}
		return out
	}
	set = func(values map[string]float64) {
		out := make(map[string]int64, len(values))
		for k, v := range values {
			out[k] = int64(v)
		}
		*p = out
	}
	return get, set
}
