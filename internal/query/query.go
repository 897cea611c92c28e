package query

import (
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// Query is a bool filter: every Must clause has to hold, no MustNot clause
// may hold, and at least one Should clause has to hold when any are present.
// It serializes to the backend's bool-filter dialect and can be evaluated
// directly against a document map by the embedded store.
type Query struct {
	Must    []Clause
	MustNot []Clause
	Should  []Clause
}

type Clause interface {
	Match(doc map[string]any, now time.Time) bool
	body() (rule string, value any)
}

// And merges two queries into one that requires both.
func (q Query) And(other Query) Query {
	return Query{
		Must:    append(append([]Clause{}, q.Must...), other.Must...),
		MustNot: append(append([]Clause{}, q.MustNot...), other.MustNot...),
		Should:  append(append([]Clause{}, q.Should...), other.Should...),
	}
}

func (q Query) Match(doc map[string]any, now time.Time) bool {
	for _, c := range q.Must {
		if !c.Match(doc, now) {
			return false
		}
	}
	for _, c := range q.MustNot {
		if c.Match(doc, now) {
			return false
		}
	}
	if len(q.Should) > 0 {
		matched := false
		for _, c := range q.Should {
			if c.Match(doc, now) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (q Query) MarshalJSON() ([]byte, error) {
	conditions := make(map[string]any, 3)
	if len(q.Must) > 0 {
		conditions["must"] = clauseList(q.Must)
	}
	if len(q.MustNot) > 0 {
		conditions["must_not"] = clauseList(q.MustNot)
	}
	if len(q.Should) > 0 {
		conditions["should"] = clauseList(q.Should)
	}
	return json.Marshal(map[string]any{"bool": conditions})
}

func clauseList(clauses []Clause) []map[string]any {
	out := make([]map[string]any, 0, len(clauses))
	for _, c := range clauses {
		rule, value := c.body()
		out = append(out, map[string]any{rule: value})
	}
	return out
}

// Exists matches documents where the dotted field path resolves to a
// non-null value. A section is "populated" iff its path exists at all.
type Exists struct {
	Field string
}

func (e Exists) Match(doc map[string]any, _ time.Time) bool {
	_, ok := Lookup(doc, e.Field)
	return ok
}

func (e Exists) body() (string, any) {
	return "exists", map[string]any{"field": e.Field}
}

// Term matches an exact value.
type Term struct {
	Field string
	Value any
}

func (t Term) Match(doc map[string]any, _ time.Time) bool {
	v, ok := Lookup(doc, t.Field)
	if !ok {
		return false
	}
	return valueMatches(v, t.Value)
}

func (t Term) body() (string, any) {
	return "term", map[string]any{t.Field: t.Value}
}

// Terms matches any of the listed values.
type Terms struct {
	Field  string
	Values []string
}

func (t Terms) Match(doc map[string]any, _ time.Time) bool {
	v, ok := Lookup(doc, t.Field)
	if !ok {
		return false
	}
	for _, want := range t.Values {
		if valueMatches(v, want) {
			return true
		}
	}
	return false
}

func (t Terms) body() (string, any) {
	return "terms", map[string]any{t.Field: t.Values}
}

// Range matches ordered bounds. Bounds may be numbers, times, RFC3339
// strings, or relative expressions of the form "now-<N>s/s", which keeps the
// serialized query identical across calls and therefore cacheable.
type Range struct {
	Field string
	GT    any
	GTE   any
	LT    any
	LTE   any
}

func (r Range) Match(doc map[string]any, now time.Time) bool {
	raw, ok := Lookup(doc, r.Field)
	if !ok {
		return false
	}
	if r.GT != nil && Compare(raw, r.GT, now) <= 0 {
		return false
	}
	if r.GTE != nil && Compare(raw, r.GTE, now) < 0 {
		return false
	}
	if r.LT != nil && Compare(raw, r.LT, now) >= 0 {
		return false
	}
	if r.LTE != nil && Compare(raw, r.LTE, now) > 0 {
		return false
	}
	return true
}

func (r Range) body() (string, any) {
	bounds := make(map[string]any, 4)
	if r.GT != nil {
		bounds["gt"] = r.GT
	}
	if r.GTE != nil {
		bounds["gte"] = r.GTE
	}
	if r.LT != nil {
		bounds["lt"] = r.LT
	}
	if r.LTE != nil {
		bounds["lte"] = r.LTE
	}
	return "range", map[string]any{r.Field: bounds}
}

var relativeExpr = regexp.MustCompile(`^now-(\d+)s(?:/s)?$`)

// Lookup resolves a dotted path inside nested maps. Nil leaves count as
// absent: an explicit null in storage means the field was cleared.
func Lookup(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func valueMatches(stored, want any) bool {
	if list, ok := stored.([]any); ok {
		for _, item := range list {
			if valueMatches(item, want) {
				return true
			}
		}
		return false
	}
	return cast.ToString(stored) == cast.ToString(want)
}

// Compare orders two scalars, resolving times and relative expressions.
// Returns -1, 0 or 1.
func Compare(stored, bound any, now time.Time) int {
	if st, ok := asTime(stored, now); ok {
		if bt, ok := asTime(bound, now); ok {
			switch {
			case st.Before(bt):
				return -1
			case st.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	sf, serr := cast.ToFloat64E(stored)
	bf, berr := cast.ToFloat64E(bound)
	if serr == nil && berr == nil {
		switch {
		case sf < bf:
			return -1
		case sf > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(cast.ToString(stored), cast.ToString(bound))
}

func asTime(v any, now time.Time) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if m := relativeExpr.FindStringSubmatch(t); m != nil {
			seconds := cast.ToInt64(m[1])
			return now.Add(-time.Duration(seconds) * time.Second).Truncate(time.Second), true
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
