package stats

import (
	"sort"
	"time"
)

// RawDateLayout keys raw history entries by calendar date.
const RawDateLayout = "2006-01-02"

// RawTracked wires one counter field into the raw history recorder.
type RawTracked struct {
	Name   string
	Value  func() (float64, bool)
	Raw    func() map[string]float64
	SetRaw func(map[string]float64)
}

// RawHistory records exact observed counter values into sparse
// date-keyed *_raw_history maps. Unlike History it does not interpolate:
// each update stores the current value under the close-of-previous-day date
// and backfills at most the one date of the previous sample.
type RawHistory struct {
	anchor *Anchor
	fields []RawTracked
	limit  int

	prevValues      map[string]float64
	prevFetchedAt   *time.Time
	prevHistoryDate *time.Time
}

func NewRawHistory(anchor *Anchor, fields []RawTracked) *RawHistory {
	rh := &RawHistory{
		anchor:     anchor,
		fields:     fields,
		limit:      DaysLimit,
		prevValues: make(map[string]float64),
	}
	rh.savePrevValues()
	return rh
}

func (rh *RawHistory) savePrevValues() {
	if rh.anchor == nil {
		return
	}
	if rh.anchor.FetchedAt != nil {
		at := *rh.anchor.FetchedAt
		rh.prevFetchedAt = &at
	}
	if rh.anchor.HistoryDate != nil {
		hd := *rh.anchor.HistoryDate
		rh.prevHistoryDate = &hd
	}
	for _, f := range rh.fields {
		if v, ok := f.Value(); ok && v != 0 {
			rh.prevValues[f.Name] = v
		}
	}
}

// Update stamps historydate and records the current value of every tracked
// field. A repeated observation on the same calendar day overwrites that
// day's entry with the newer value.
func (rh *RawHistory) Update() error {
	if rh.anchor == nil || rh.anchor.FetchedAt == nil {
		return nil
	}
	if rh.prevFetchedAt != nil && rh.prevFetchedAt.After(*rh.anchor.FetchedAt) {
		return ErrOutOfOrder
	}

	historyDate := prevDayLastSecond(*rh.anchor.FetchedAt)
	rh.anchor.HistoryDate = &historyDate

	for _, f := range rh.fields {
		rh.updateFieldHistory(f)
	}
	return nil
}

func (rh *RawHistory) updateFieldHistory(f RawTracked) {
	date := rh.anchor.HistoryDate.Format(RawDateLayout)

	values := make(map[string]float64)
	for k, v := range f.Raw() {
		values[k] = v
	}

	if rh.prevHistoryDate != nil {
		prevDate := rh.prevHistoryDate.Format(RawDateLayout)
		if prevValue, ok := rh.prevValues[f.Name]; ok {
			if _, recorded := values[prevDate]; !recorded {
				values[prevDate] = prevValue
			}
		}
	}

	if value, ok := f.Value(); ok {
		values[date] = value
	}

	if rh.limit > 0 && len(values) > rh.limit {
		values = trimOldest(values, rh.limit)
	}
	f.SetRaw(values)
}

func trimOldest(values map[string]float64, limit int) map[string]float64 {
	dates := make([]string, 0, len(values))
	for date := range values {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	trimmed := make(map[string]float64, limit)
	for _, date := range dates[:limit] {
		trimmed[date] = values[date]
	}
	return trimmed
}
