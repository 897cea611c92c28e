package models

import "time"

// StatsObservation is one raw counter sample for one entity, as posted by
// the external fetch workers. Counters are optional: a worker only sends
// what it managed to fetch.
type StatsObservation struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	FetchedAt time.Time `json:"fetched_at"`

	Subscribers         *int64 `json:"subscribers,omitempty"`
	Views               *int64 `json:"views,omitempty"`
	Likes               *int64 `json:"likes,omitempty"`
	Dislikes            *int64 `json:"dislikes,omitempty"`
	Comments            *int64 `json:"comments,omitempty"`
	TotalVideosCount    *int64 `json:"total_videos_count,omitempty"`
	ObservedVideosCount *int64 `json:"observed_videos_count,omitempty"`
	MonthlySearches     *int64 `json:"monthly_searches,omitempty"`
	VideosCount         *int64 `json:"videos_count,omitempty"`
}

func (o *StatsObservation) Valid() bool {
	switch o.Kind {
	case ChannelDocType, VideoDocType, KeywordDocType:
	default:
		return false
	}
	return o.ID != "" && !o.FetchedAt.IsZero()
}
