package query

// Builder is the fluent front for assembling single-clause bool queries:
//
//	query.NewBuilder().Must().Exists().Field("stats")
//	query.NewBuilder().MustNot().Terms().Field("main.id").Value(ids)
//	query.NewBuilder().Must().Range().Field("stats.updated_at").Lt(cutoff)
//
// Each chain yields a Query; combine them with And.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Must() *Condition {
	return &Condition{attach: func(q *Query, c Clause) { q.Must = append(q.Must, c) }}
}

func (b *Builder) MustNot() *Condition {
	return &Condition{attach: func(q *Query, c Clause) { q.MustNot = append(q.MustNot, c) }}
}

func (b *Builder) Should() *Condition {
	return &Condition{attach: func(q *Query, c Clause) { q.Should = append(q.Should, c) }}
}

type Condition struct {
	attach func(*Query, Clause)
}

func (c *Condition) wrap(clause Clause) Query {
	var q Query
	c.attach(&q, clause)
	return q
}

func (c *Condition) Exists() *ExistsField {
	return &ExistsField{cond: c}
}

func (c *Condition) Term() *TermField {
	return &TermField{cond: c}
}

func (c *Condition) Terms() *TermsField {
	return &TermsField{cond: c}
}

func (c *Condition) Range() *RangeField {
	return &RangeField{cond: c}
}

type ExistsField struct {
	cond *Condition
}

func (f *ExistsField) Field(name string) Query {
	return f.cond.wrap(Exists{Field: name})
}

type TermField struct {
	cond *Condition
}

func (f *TermField) Field(name string) *TermValue {
	return &TermValue{cond: f.cond, field: name}
}

type TermValue struct {
	cond  *Condition
	field string
}

func (v *TermValue) Value(value any) Query {
	return v.cond.wrap(Term{Field: v.field, Value: value})
}

type TermsField struct {
	cond *Condition
}

func (f *TermsField) Field(name string) *TermsValue {
	return &TermsValue{cond: f.cond, field: name}
}

type TermsValue struct {
	cond  *Condition
	field string
}

func (v *TermsValue) Value(values []string) Query {
	return v.cond.wrap(Terms{Field: v.field, Values: values})
}

type RangeField struct {
	cond *Condition
}

func (f *RangeField) Field(name string) *RangeValue {
	return &RangeValue{cond: f.cond, clause: Range{Field: name}}
}

type RangeValue struct {
	cond   *Condition
	clause Range
}

func (v *RangeValue) Gt(bound any) *RangeValue {
	v.clause.GT = bound
	return v
}

func (v *RangeValue) Gte(bound any) *RangeValue {
	v.clause.GTE = bound
	return v
}

func (v *RangeValue) Lt(bound any) *RangeValue {
	v.clause.LT = bound
	return v
}

func (v *RangeValue) Lte(bound any) *RangeValue {
	v.clause.LTE = bound
	return v
}

func (v *RangeValue) Get() Query {
	return v.cond.wrap(v.clause)
}
