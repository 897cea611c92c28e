package stats

import (
	"errors"
	"math"
	"time"
)

// DaysLimit bounds every *_history array and the raw history key set.
const DaysLimit = 31

const oneDay = 24 * time.Hour

// ErrOutOfOrder is returned when an update carries a fetched_at older than
// the previously committed one. Accepting it would corrupt interpolation,
// so the update call fails instead.
var ErrOutOfOrder = errors.New("history: fetched_at is older than the last committed sample")

// Anchor is embedded by sections that carry counter history.
type Anchor struct {
	FetchedAt   *time.Time `json:"fetched_at,omitempty"`
	HistoryDate *time.Time `json:"historydate,omitempty"`
}

// Tracked wires one counter field of a section into the backfill engine.
// The accessors close over the section's typed fields; Integer marks fields
// whose interpolated values are truncated back to a whole number.
type Tracked struct {
	Name       string
	Integer    bool
	Value      func() (float64, bool)
	History    func() []*float64
	SetHistory func([]*float64)
}

// History builds dense daily *_history arrays from pairs of counter samples.
//
// It must be created at section load time, before any new values are applied:
// the constructor captures the previous committed sample, and Update
// interpolates between it and the section's current state.
//
//	h := stats.NewHistory(&section.Anchor, section.HistoryFields())
//	section.Subscribers = ...
//	section.FetchedAt = ...
//	err := h.Update()
type History struct {
	anchor *Anchor
	fields []Tracked
	limit  int

	prevValues      map[string]float64
	prevFetchedAt   *time.Time
	prevHistoryDate *time.Time
}

func NewHistory(anchor *Anchor, fields []Tracked) *History {
	h := &History{
		anchor:     anchor,
		fields:     fields,
		limit:      DaysLimit,
		prevValues: make(map[string]float64),
	}
	h.savePrevValues()
	return h
}

func (h *History) savePrevValues() {
	if h.anchor == nil {
		return
	}
	if h.anchor.FetchedAt != nil {
		at := *h.anchor.FetchedAt
		h.prevFetchedAt = &at
	}
	if h.anchor.HistoryDate != nil {
		hd := *h.anchor.HistoryDate
		h.prevHistoryDate = &hd
	}
	for _, f := range h.fields {
		if v, ok := f.Value(); ok && v != 0 {
			h.prevValues[f.Name] = v
		}
	}
}

// Update advances historydate to the last second of the day before the new
// fetched_at and prepends one interpolated value per missing calendar day to
// each tracked field's history. History advances at most once per calendar
// day; a same-day update is a no-op.
func (h *History) Update() error {
	if h.anchor == nil || h.anchor.FetchedAt == nil {
		return nil
	}
	if h.prevFetchedAt == nil {
		return nil
	}
	if h.prevFetchedAt.After(*h.anchor.FetchedAt) {
		return ErrOutOfOrder
	}
	if sameDay(*h.prevFetchedAt, *h.anchor.FetchedAt) {
		return nil
	}

	historyDate := prevDayLastSecond(*h.anchor.FetchedAt)
	h.anchor.HistoryDate = &historyDate

	for _, f := range h.fields {
		h.updateFieldHistory(f)
	}
	return nil
}

func (h *History) updateFieldHistory(f Tracked) {
	value, ok := f.Value()
	if !ok {
		return
	}
	existing := f.History()

	prevValue, havePrev := h.prevValues[f.Name]
	prevAt := *h.prevFetchedAt
	kept := existing
	inclusive := true

	if !havePrev {
		// The previous sample had no value. Recover an anchor point from the
		// newest non-null history entry and refill only the null gap above it.
		idx := firstNonNil(existing)
		if idx < 0 || h.prevHistoryDate == nil {
			return
		}
		prevValue = *existing[idx]
		prevAt = h.prevHistoryDate.AddDate(0, 0, -idx)
		kept = existing[idx:]
		inclusive = false
	}

	var fresh []*float64
	for date := *h.anchor.HistoryDate; afterBoundary(date, prevAt, inclusive); date = date.Add(-oneDay) {
		v := LinearValue(
			float64(date.Unix()),
			float64(prevAt.Unix()), prevValue,
			float64(h.anchor.FetchedAt.Unix()), value,
		)
		if f.Integer {
			v = math.Trunc(v)
		}
		val := v
		fresh = append(fresh, &val)
	}

	merged := append(fresh, kept...)
	if len(merged) > h.limit {
		merged = merged[:h.limit]
	}
	if allNil(merged) {
		merged = nil
	}
	f.SetHistory(merged)
}

func afterBoundary(date, boundary time.Time, inclusive bool) bool {
	if inclusive {
		return !date.Before(boundary)
	}
	return date.After(boundary)
}

func firstNonNil(values []*float64) int {
	for i, v := range values {
		if v != nil {
			return i
		}
	}
	return -1
}

func allNil(values []*float64) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func prevDayLastSecond(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location()).AddDate(0, 0, -1)
}
