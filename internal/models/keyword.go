package models

import (
	"sds/internal/stats"
)

const (
	KeywordDocType = "keyword"
	KeywordIndex   = "keywords"
)

// KeywordStats tracks search interest for a keyword.
type KeywordStats struct {
	Timestamps
	stats.Anchor

	Views           *int64           `json:"views,omitempty"`
	ViewsHistory    []*int64         `json:"views_history,omitempty"`
	ViewsRawHistory map[string]int64 `json:"views_raw_history,omitempty"`

	MonthlySearches *int64 `json:"monthly_searches,omitempty"`
	VideosCount     *int64 `json:"videos_count,omitempty"`
}

func (s *KeywordStats) HistoryFields() []stats.Tracked {
	viewsGet, viewsSet := int64History(&s.ViewsHistory)

	return []stats.Tracked{
		{Name: "views", Integer: true, Value: int64Value(&s.Views), History: viewsGet, SetHistory: viewsSet},
	}
}

func (s *KeywordStats) RawHistoryFields() []stats.RawTracked {
	viewsGet, viewsSet := int64Raw(&s.ViewsRawHistory)

	return []stats.RawTracked{
		{Name: "views", Value: int64Value(&s.Views), Raw: viewsGet, SetRaw: viewsSet},
	}
}

type Keyword struct {
	BaseDoc

	Main     *MainSection     `json:"main,omitempty"`
	Stats    *KeywordStats    `json:"stats,omitempty"`
	Deleted  *DeletedSection  `json:"deleted,omitempty"`
	Segments *SegmentsSection `json:"segments,omitempty"`

	history    *stats.History
	rawHistory *stats.RawHistory
}

func NewKeyword(id string) *Keyword {
	return &Keyword{Main: &MainSection{ID: id}}
}

func (k *Keyword) ID() string {
	if k.Main == nil {
		return ""
	}
	return k.Main.ID
}

func (k *Keyword) Section(name string) (any, bool) {
	switch name {
	case SectionMain:
		return k.Main, k.Main != nil
	case SectionStats:
		return k.Stats, k.Stats != nil
	case SectionDeleted:
		return k.Deleted, k.Deleted != nil
	case SectionSegments:
		return k.Segments, k.Segments != nil
	}
	return nil, false
}

func (k *Keyword) SectionTimestamps(name string) *Timestamps {
	switch name {
	case SectionMain:
		if k.Main != nil {
			return &k.Main.Timestamps
		}
	case SectionStats:
		if k.Stats != nil {
			return &k.Stats.Timestamps
		}
	case SectionDeleted:
		if k.Deleted != nil {
			return &k.Deleted.Timestamps
		}
	case SectionSegments:
		if k.Segments != nil {
			return &k.Segments.Timestamps
		}
	}
	return nil
}

func (k *Keyword) PopulateStats() *KeywordStats {
	if k.Stats == nil {
		k.Stats = &KeywordStats{}
	}
	return k.Stats
}

func (k *Keyword) PopulateSegments() *SegmentsSection {
	if k.Segments == nil {
		k.Segments = &SegmentsSection{}
	}
	return k.Segments
}

func (k *Keyword) MarkDeleted(initiator, reason string) *DeletedSection {
	if k.Deleted == nil {
		k.Deleted = &DeletedSection{}
	}
	k.Deleted.Initiator = initiator
	k.Deleted.Reason = reason
	return k.Deleted
}

func (k *Keyword) PrepareHistory() {
	if k.Stats == nil {
		return
	}
	k.history = stats.NewHistory(&k.Stats.Anchor, k.Stats.HistoryFields())
	k.rawHistory = stats.NewRawHistory(&k.Stats.Anchor, k.Stats.RawHistoryFields())
}

func (k *Keyword) UpdateHistory() error {
	if k.history != nil {
		if err := k.history.Update(); err != nil {
			return err
		}
	}
	if k.rawHistory != nil {
		if err := k.rawHistory.Update(); err != nil {
			return err
		}
	}
	return nil
}
