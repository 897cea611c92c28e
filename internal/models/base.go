package models

import (
	"time"

	json "github.com/goccy/go-json"
)

// Section names shared across document types. Every document keeps a closed
// set of named optional sections; there is no dynamic attribute bag.
const (
	SectionMain             = "main"
	SectionDeleted          = "deleted"
	SectionSegments         = "segments"
	SectionGeneralData      = "general_data"
	SectionStats            = "stats"
	SectionMonetization     = "monetization"
	SectionSocial           = "social"
	SectionCMS              = "cms"
	SectionBrandSafety      = "brand_safety"
	SectionCustomProperties = "custom_properties"
	SectionChannel          = "channel"
	SectionCaptions         = "captions"
)

// Timestamp field names inside every section.
const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// MainIDField is the dotted path of the identity field.
const MainIDField = "main.id"

// SegmentsUUIDField is the dotted path of segment membership.
const SegmentsUUIDField = "segments.uuid"

// Timestamps is embedded by every section. CreatedAt is set once on first
// write; UpdatedAt is refreshed on every write unless the section is marked
// update-time-exempt for that upsert.
type Timestamps struct {
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// MainSection is the control/identity section. A document without it is
// considered corrupt and skipped by freshness scans.
type MainSection struct {
	Timestamps
	ID string `json:"id,omitempty"`
}

// DeletedSection marks logical deletion. Documents are never physically
// removed by the normal flow; alive queries exclude documents carrying it.
type DeletedSection struct {
	Timestamps
	Initiator string `json:"initiator,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SegmentsSection holds segment membership UUIDs.
type SegmentsSection struct {
	Timestamps
	UUIDs []string `json:"uuid,omitempty"`
}

// AddUniq appends values not already present.
func (s *SegmentsSection) AddUniq(values ...string) {
	seen := make(map[string]struct{}, len(s.UUIDs))
	for _, v := range s.UUIDs {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			s.UUIDs = append(s.UUIDs, v)
			seen[v] = struct{}{}
		}
	}
}

// ScheduleSection exists purely for its timestamps: fetch schedulers use it
// as a per-concern freshness marker.
type ScheduleSection struct {
	Timestamps
}

// DocMeta carries storage metadata that never enters a patch. Raw keeps the
// per-section source maps the document was loaded with, so fields the struct
// no longer knows about still surface during upsert serialization (and get
// nulled by the schema check). Version is the optimistic-concurrency marker;
// it is stripped before a partial update is emitted.
type DocMeta struct {
	Version *int64
	Raw     map[string]map[string]any
}

// BaseDoc is embedded by every document type.
type BaseDoc struct {
	meta DocMeta
}

func (b *BaseDoc) Meta() *DocMeta {
	return &b.meta
}

// RawSection returns the source map the section was loaded with, if any.
func (b *BaseDoc) RawSection(name string) map[string]any {
	return b.meta.Raw[name]
}

// Document is what managers operate on. Section and SectionTimestamps are
// backed by static per-type switch tables, not reflection.
type Document interface {
	ID() string
	Meta() *DocMeta
	// Section returns the typed section pointer; ok is false when the
	// section is not populated.
	Section(name string) (data any, ok bool)
	// SectionTimestamps returns the section's timestamp pair, nil when the
	// section is not populated.
	SectionTimestamps(name string) *Timestamps
	PopulateSegments() *SegmentsSection
	MarkDeleted(initiator, reason string) *DeletedSection
	// PrepareHistory captures the previous committed counter samples.
	// Managers call it right after load, before any mutation.
	PrepareHistory()
	// UpdateHistory runs the backfill engines against the current state.
	UpdateHistory() error
}

// SectionToMap serializes a section struct into a patch fragment. Unset
// pointer fields are absent, not null: only schema-unknown fields are ever
// nulled, and that happens later in the upsert engine.
func SectionToMap(section any) (map[string]any, error) {
	data, err := json.Marshal(section)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
