package models

import (
	"time"

	"sds/internal/stats"
)

const (
	VideoDocType = "video"
	VideoIndex   = "videos"
)

// VideoChannelIDField is the dotted path linking a video to its channel.
const VideoChannelIDField = "channel.id"

// VideoGeneralData holds descriptive video attributes.
type VideoGeneralData struct {
	Timestamps
	Title              string     `json:"title,omitempty"`
	Description        string     `json:"description,omitempty"`
	ThumbnailImageURL  string     `json:"thumbnail_image_url,omitempty"`
	CountryCode        string     `json:"country_code,omitempty"`
	LangCode           string     `json:"lang_code,omitempty"`
	Category           string     `json:"category,omitempty"`
	IABCategories      []string   `json:"iab_categories,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	DurationSeconds    *int64     `json:"duration,omitempty"`
	YoutubePublishedAt *time.Time `json:"youtube_published_at,omitempty"`
}

// VideoStats is the counter section for a single video.
type VideoStats struct {
	Timestamps
	stats.Anchor

	Views           *int64           `json:"views,omitempty"`
	ViewsHistory    []*int64         `json:"views_history,omitempty"`
	ViewsRawHistory map[string]int64 `json:"views_raw_history,omitempty"`

	Likes        *int64   `json:"likes,omitempty"`
	LikesHistory []*int64 `json:"likes_history,omitempty"`

	Dislikes        *int64   `json:"dislikes,omitempty"`
	DislikesHistory []*int64 `json:"dislikes_history,omitempty"`

	Comments        *int64   `json:"comments,omitempty"`
	CommentsHistory []*int64 `json:"comments_history,omitempty"`

	LastDayViews   *int64 `json:"last_day_views,omitempty"`
	Last30DayViews *int64 `json:"last_30day_views,omitempty"`

	Sentiment        *float64   `json:"sentiment,omitempty"`
	SentimentHistory []*float64 `json:"sentiment_history,omitempty"`

	EngageRate        *float64   `json:"engage_rate,omitempty"`
	EngageRateHistory []*float64 `json:"engage_rate_history,omitempty"`

	FlagsCount *int64 `json:"flags_count,omitempty"`
}

func (s *VideoStats) HistoryFields() []stats.Tracked {
	viewsGet, viewsSet := int64History(&s.ViewsHistory)
	likesGet, likesSet := int64History(&s.LikesHistory)
	dislikesGet, dislikesSet := int64History(&s.DislikesHistory)
	commentsGet, commentsSet := int64History(&s.CommentsHistory)
	sentimentGet, sentimentSet := floatHistory(&s.SentimentHistory)
	engageGet, engageSet := floatHistory(&s.EngageRateHistory)

	return []stats.Tracked{
		{Name: "views", Integer: true, Value: int64Value(&s.Views), History: viewsGet, SetHistory: viewsSet},
		{Name: "likes", Integer: true, Value: int64Value(&s.Likes), History: likesGet, SetHistory: likesSet},
		{Name: "dislikes", Integer: true, Value: int64Value(&s.Dislikes), History: dislikesGet, SetHistory: dislikesSet},
		{Name: "comments", Integer: true, Value: int64Value(&s.Comments), History: commentsGet, SetHistory: commentsSet},
		{Name: "sentiment", Value: floatValue(&s.Sentiment), History: sentimentGet, SetHistory: sentimentSet},
		{Name: "engage_rate", Value: floatValue(&s.EngageRate), History: engageGet, SetHistory: engageSet},
	}
}

// RefreshWindowCounters recomputes the fixed-window view aggregates from the
// daily history. Run after the history engine.
func (s *VideoStats) RefreshWindowCounters() {
	s.LastDayViews = historyWindowSum(s.ViewsHistory, true, 1, 0)
	s.Last30DayViews = historyWindowSum(s.ViewsHistory, true, 30, 3)
}

func (s *VideoStats) RawHistoryFields() []stats.RawTracked {
	viewsGet, viewsSet := int64Raw(&s.ViewsRawHistory)

	return []stats.RawTracked{
		{Name: "views", Value: int64Value(&s.Views), Raw: viewsGet, SetRaw: viewsSet},
	}
}

// VideoChannel links the video to its owning channel.
type VideoChannel struct {
	Timestamps
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// VideoMonetization holds monetization flags.
type VideoMonetization struct {
	Timestamps
	IsMonetizable *bool `json:"is_monetizable,omitempty"`
}

// VideoCaptions records caption availability.
type VideoCaptions struct {
	Timestamps
	HasTranscripts *bool    `json:"has_transcripts,omitempty"`
	Items          []string `json:"items,omitempty"`
}

type Video struct {
	BaseDoc

	Main         *MainSection       `json:"main,omitempty"`
	GeneralData  *VideoGeneralData  `json:"general_data,omitempty"`
	Stats        *VideoStats        `json:"stats,omitempty"`
	Channel      *VideoChannel      `json:"channel,omitempty"`
	Monetization *VideoMonetization `json:"monetization,omitempty"`
	Captions     *VideoCaptions     `json:"captions,omitempty"`
	Deleted      *DeletedSection    `json:"deleted,omitempty"`
	Segments     *SegmentsSection   `json:"segments,omitempty"`

	history    *stats.History
	rawHistory *stats.RawHistory
}

func NewVideo(id string) *Video {
	return &Video{Main: &MainSection{ID: id}}
}

func (v *Video) ID() string {
	if v.Main == nil {
		return ""
	}
	return v.Main.ID
}

func (v *Video) Section(name string) (any, bool) {
	switch name {
	case SectionMain:
		return v.Main, v.Main != nil
	case SectionGeneralData:
		return v.GeneralData, v.GeneralData != nil
	case SectionStats:
		return v.Stats, v.Stats != nil
	case SectionChannel:
		return v.Channel, v.Channel != nil
	case SectionMonetization:
		return v.Monetization, v.Monetization != nil
	case SectionCaptions:
		return v.Captions, v.Captions != nil
	case SectionDeleted:
		return v.Deleted, v.Deleted != nil
	case SectionSegments:
		return v.Segments, v.Segments != nil
	}
	return nil, false
}

func (v *Video) SectionTimestamps(name string) *Timestamps {
	switch name {
	case SectionMain:
		if v.Main != nil {
			return &v.Main.Timestamps
		}
	case SectionGeneralData:
		if v.GeneralData != nil {
			return &v.GeneralData.Timestamps
		}
	case SectionStats:
		if v.Stats != nil {
			return &v.Stats.Timestamps
		}
	case SectionChannel:
		if v.Channel != nil {
			return &v.Channel.Timestamps
		}
	case SectionMonetization:
		if v.Monetization != nil {
			return &v.Monetization.Timestamps
		}
	case SectionCaptions:
		if v.Captions != nil {
			return &v.Captions.Timestamps
		}
	case SectionDeleted:
		if v.Deleted != nil {
			return &v.Deleted.Timestamps
		}
	case SectionSegments:
		if v.Segments != nil {
			return &v.Segments.Timestamps
		}
	}
	return nil
}

func (v *Video) PopulateGeneralData() *VideoGeneralData {
	if v.GeneralData == nil {
		v.GeneralData = &VideoGeneralData{}
	}
	return v.GeneralData
}

func (v *Video) PopulateStats() *VideoStats {
	if v.Stats == nil {
		v.Stats = &VideoStats{}
	}
	return v.Stats
}

func (v *Video) PopulateChannel() *VideoChannel {
	if v.Channel == nil {
		v.Channel = &VideoChannel{}
	}
	return v.Channel
}

func (v *Video) PopulateMonetization() *VideoMonetization {
	if v.Monetization == nil {
		v.Monetization = &VideoMonetization{}
	}
	return v.Monetization
}

func (v *Video) PopulateCaptions() *VideoCaptions {
	if v.Captions == nil {
		v.Captions = &VideoCaptions{}
	}
	return v.Captions
}

func (v *Video) PopulateSegments() *SegmentsSection {
	if v.Segments == nil {
		v.Segments = &SegmentsSection{}
	}
	return v.Segments
}

func (v *Video) MarkDeleted(initiator, reason string) *DeletedSection {
	if v.Deleted == nil {
		v.Deleted = &DeletedSection{}
	}
	v.Deleted.Initiator = initiator
	v.Deleted.Reason = reason
	return v.Deleted
}

func (v *Video) PrepareHistory() {
	if v.Stats == nil {
		return
	}
	v.history = stats.NewHistory(&v.Stats.Anchor, v.Stats.HistoryFields())
	v.rawHistory = stats.NewRawHistory(&v.Stats.Anchor, v.Stats.RawHistoryFields())
}

func (v *Video) UpdateHistory() error {
	if v.history != nil {
		if err := v.history.Update(); err != nil {
			return err
		}
	}
	if v.rawHistory != nil {
		if err := v.rawHistory.Update(); err != nil {
			return err
		}
	}
	return nil
}
