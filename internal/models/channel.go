package models

import (
	"time"

	"sds/internal/stats"
)

const (
	ChannelDocType = "channel"
	ChannelIndex   = "channels"
)

// ChannelGeneralData holds descriptive channel attributes.
type ChannelGeneralData struct {
	Timestamps
	Title              string     `json:"title,omitempty"`
	Description        string     `json:"description,omitempty"`
	ThumbnailImageURL  string     `json:"thumbnail_image_url,omitempty"`
	CountryCode        string     `json:"country_code,omitempty"`
	TopCategory        string     `json:"top_category,omitempty"`
	TopLangCode        string     `json:"top_lang_code,omitempty"`
	LangCodes          []string   `json:"lang_codes,omitempty"`
	Emails             []string   `json:"emails,omitempty"`
	IABCategories      []string   `json:"iab_categories,omitempty"`
	MadeForKids        *bool      `json:"made_for_kids,omitempty"`
	YoutubePublishedAt *time.Time `json:"youtube_published_at,omitempty"`
}

// ChannelStats is the counter section. Histories are newest-first daily
// arrays bounded by stats.DaysLimit; raw histories are sparse date-keyed
// maps of exact observed values.
type ChannelStats struct {
	Timestamps
	stats.Anchor

	LastVideoPublishedAt *time.Time `json:"last_video_published_at,omitempty"`

	Subscribers           *int64           `json:"subscribers,omitempty"`
	SubscribersHistory    []*int64         `json:"subscribers_history,omitempty"`
	SubscribersRawHistory map[string]int64 `json:"subscribers_raw_history,omitempty"`

	Views           *int64           `json:"views,omitempty"`
	ViewsHistory    []*int64         `json:"views_history,omitempty"`
	ViewsRawHistory map[string]int64 `json:"views_raw_history,omitempty"`

	TotalVideosCount        *int64   `json:"total_videos_count,omitempty"`
	TotalVideosCountHistory []*int64 `json:"total_videos_count_history,omitempty"`

	ObservedVideosCount        *int64   `json:"observed_videos_count,omitempty"`
	ObservedVideosCountHistory []*int64 `json:"observed_videos_count_history,omitempty"`

	ViewsPerVideo        *float64   `json:"views_per_video,omitempty"`
	ViewsPerVideoHistory []*float64 `json:"views_per_video_history,omitempty"`

	LastDayViews   *int64 `json:"last_day_views,omitempty"`
	Last7DayViews  *int64 `json:"last_7day_views,omitempty"`
	Last30DayViews *int64 `json:"last_30day_views,omitempty"`

	Last30DaySubscribers *int64 `json:"last_30day_subscribers,omitempty"`

	Sentiment        *float64   `json:"sentiment,omitempty"`
	SentimentHistory []*float64 `json:"sentiment_history,omitempty"`

	EngageRate        *float64   `json:"engage_rate,omitempty"`
	EngageRateHistory []*float64 `json:"engage_rate_history,omitempty"`

	ChannelGroup          string `json:"channel_group,omitempty"`
	HiddenSubscriberCount *bool  `json:"hidden_subscriber_count,omitempty"`
}

// HistoryFields is the static wiring of tracked counters into the backfill
// engine. Integer fields are truncated back to whole numbers after
// interpolation.
func (s *ChannelStats) HistoryFields() []stats.Tracked {
	subsGet, subsSet := int64History(&s.SubscribersHistory)
	viewsGet, viewsSet := int64History(&s.ViewsHistory)
	totalGet, totalSet := int64History(&s.TotalVideosCountHistory)
	observedGet, observedSet := int64History(&s.ObservedVideosCountHistory)
	perVideoGet, perVideoSet := floatHistory(&s.ViewsPerVideoHistory)
	sentimentGet, sentimentSet := floatHistory(&s.SentimentHistory)
	engageGet, engageSet := floatHistory(&s.EngageRateHistory)

	return []stats.Tracked{
		{Name: "subscribers", Integer: true, Value: int64Value(&s.Subscribers), History: subsGet, SetHistory: subsSet},
		{Name: "views", Integer: true, Value: int64Value(&s.Views), History: viewsGet, SetHistory: viewsSet},
		{Name: "total_videos_count", Integer: true, Value: int64Value(&s.TotalVideosCount), History: totalGet, SetHistory: totalSet},
		{Name: "observed_videos_count", Integer: true, Value: int64Value(&s.ObservedVideosCount), History: observedGet, SetHistory: observedSet},
		{Name: "views_per_video", Value: floatValue(&s.ViewsPerVideo), History: perVideoGet, SetHistory: perVideoSet},
		{Name: "sentiment", Value: floatValue(&s.Sentiment), History: sentimentGet, SetHistory: sentimentSet},
		{Name: "engage_rate", Value: floatValue(&s.EngageRate), History: engageGet, SetHistory: engageSet},
	}
}

// RefreshWindowCounters recomputes the fixed-window aggregates from the
// daily histories. Views grow monotonically; subscribers can drop. Run after
// the history engine.
func (s *ChannelStats) RefreshWindowCounters() {
	s.LastDayViews = historyWindowSum(s.ViewsHistory, true, 1, 0)
	s.Last7DayViews = historyWindowSum(s.ViewsHistory, true, 7, 1)
	s.Last30DayViews = historyWindowSum(s.ViewsHistory, true, 30, 3)
	s.Last30DaySubscribers = historyWindowSum(s.SubscribersHistory, false, 30, 3)
}

func (s *ChannelStats) RawHistoryFields() []stats.RawTracked {
	subsGet, subsSet := int64Raw(&s.SubscribersRawHistory)
	viewsGet, viewsSet := int64Raw(&s.ViewsRawHistory)

	return []stats.RawTracked{
		{Name: "subscribers", Value: int64Value(&s.Subscribers), Raw: subsGet, SetRaw: subsSet},
		{Name: "views", Value: int64Value(&s.Views), Raw: viewsGet, SetRaw: viewsSet},
	}
}

// ChannelMonetization holds monetization flags.
type ChannelMonetization struct {
	Timestamps
	IsMonetizable *bool    `json:"is_monetizable,omitempty"`
	Rate          *float64 `json:"rate,omitempty"`
	Preferred     *bool    `json:"preferred,omitempty"`
}

// ChannelSocial holds linked social accounts.
type ChannelSocial struct {
	Timestamps
	FacebookLink       string `json:"facebook_link,omitempty"`
	FacebookLikes      *int64 `json:"facebook_likes,omitempty"`
	TwitterLink        string `json:"twitter_link,omitempty"`
	TwitterFollowers   *int64 `json:"twitter_followers,omitempty"`
	InstagramLink      string `json:"instagram_link,omitempty"`
	InstagramFollowers *int64 `json:"instagram_followers,omitempty"`
}

// ChannelCMS holds content-owner bindings.
type ChannelCMS struct {
	Timestamps
	ContentOwnerID []string `json:"content_owner_id,omitempty"`
	CMSTitle       []string `json:"cms_title,omitempty"`
}

// ChannelBrandSafety holds scoring state.
type ChannelBrandSafety struct {
	Timestamps
	OverallScore  *int64 `json:"overall_score,omitempty"`
	VideosScored  *int64 `json:"videos_scored,omitempty"`
	Language      string `json:"language,omitempty"`
	Rescore       *bool  `json:"rescore,omitempty"`
	LimboStatus   *bool  `json:"limbo_status,omitempty"`
	PreLimboScore *int64 `json:"pre_limbo_score,omitempty"`
}

// ChannelCustomProperties holds operator-managed flags.
type ChannelCustomProperties struct {
	Timestamps
	Preferred    *bool  `json:"preferred,omitempty"`
	IsTracked    *bool  `json:"is_tracked,omitempty"`
	ChannelGroup string `json:"channel_group,omitempty"`
}

type Channel struct {
	BaseDoc

	Main             *MainSection             `json:"main,omitempty"`
	GeneralData      *ChannelGeneralData      `json:"general_data,omitempty"`
	Stats            *ChannelStats            `json:"stats,omitempty"`
	Monetization     *ChannelMonetization     `json:"monetization,omitempty"`
	Social           *ChannelSocial           `json:"social,omitempty"`
	CMS              *ChannelCMS              `json:"cms,omitempty"`
	BrandSafety      *ChannelBrandSafety      `json:"brand_safety,omitempty"`
	CustomProperties *ChannelCustomProperties `json:"custom_properties,omitempty"`
	Deleted          *DeletedSection          `json:"deleted,omitempty"`
	Segments         *SegmentsSection         `json:"segments,omitempty"`

	history    *stats.History
	rawHistory *stats.RawHistory
}

func NewChannel(id string) *Channel {
	return &Channel{Main: &MainSection{ID: id}}
}

func (c *Channel) ID() string {
	if c.Main == nil {
		return ""
	}
	return c.Main.ID
}

func (c *Channel) Section(name string) (any, bool) {
	switch name {
	case SectionMain:
		return c.Main, c.Main != nil
	case SectionGeneralData:
		return c.GeneralData, c.GeneralData != nil
	case SectionStats:
		return c.Stats, c.Stats != nil
	case SectionMonetization:
		return c.Monetization, c.Monetization != nil
	case SectionSocial:
		return c.Social, c.Social != nil
	case SectionCMS:
		return c.CMS, c.CMS != nil
	case SectionBrandSafety:
		return c.BrandSafety, c.BrandSafety != nil
	case SectionCustomProperties:
		return c.CustomProperties, c.CustomProperties != nil
	case SectionDeleted:
		return c.Deleted, c.Deleted != nil
	case SectionSegments:
		return c.Segments, c.Segments != nil
	}
	return nil, false
}

func (c *Channel) SectionTimestamps(name string) *Timestamps {
	switch name {
	case SectionMain:
		if c.Main != nil {
			return &c.Main.Timestamps
		}
	case SectionGeneralData:
		if c.GeneralData != nil {
			return &c.GeneralData.Timestamps
		}
	case SectionStats:
		if c.Stats != nil {
			return &c.Stats.Timestamps
		}
	case SectionMonetization:
		if c.Monetization != nil {
			return &c.Monetization.Timestamps
		}
	case SectionSocial:
		if c.Social != nil {
			return &c.Social.Timestamps
		}
	case SectionCMS:
		if c.CMS != nil {
			return &c.CMS.Timestamps
		}
	case SectionBrandSafety:
		if c.BrandSafety != nil {
			return &c.BrandSafety.Timestamps
		}
	case SectionCustomProperties:
		if c.CustomProperties != nil {
			return &c.CustomProperties.Timestamps
		}
	case SectionDeleted:
		if c.Deleted != nil {
			return &c.Deleted.Timestamps
		}
	case SectionSegments:
		if c.Segments != nil {
			return &c.Segments.Timestamps
		}
	}
	return nil
}

// PopulateGeneralData ensures the section exists and returns it for mutation.
func (c *Channel) PopulateGeneralData() *ChannelGeneralData {
	if c.GeneralData == nil {
		c.GeneralData = &ChannelGeneralData{}
	}
	return c.GeneralData
}

func (c *Channel) PopulateStats() *ChannelStats {
	if c.Stats == nil {
		c.Stats = &ChannelStats{}
	}
	return c.Stats
}

func (c *Channel) PopulateMonetization() *ChannelMonetization {
	if c.Monetization == nil {
		c.Monetization = &ChannelMonetization{}
	}
	return c.Monetization
}

func (c *Channel) PopulateSocial() *ChannelSocial {
	if c.Social == nil {
		c.Social = &ChannelSocial{}
	}
	return c.Social
}

func (c *Channel) PopulateCMS() *ChannelCMS {
	if c.CMS == nil {
		c.CMS = &ChannelCMS{}
	}
	return c.CMS
}

func (c *Channel) PopulateBrandSafety() *ChannelBrandSafety {
	if c.BrandSafety == nil {
		c.BrandSafety = &ChannelBrandSafety{}
	}
	return c.BrandSafety
}

func (c *Channel) PopulateCustomProperties() *ChannelCustomProperties {
	if c.CustomProperties == nil {
		c.CustomProperties = &ChannelCustomProperties{}
	}
	return c.CustomProperties
}

func (c *Channel) PopulateSegments() *SegmentsSection {
	if c.Segments == nil {
		c.Segments = &SegmentsSection{}
	}
	return c.Segments
}

func (c *Channel) MarkDeleted(initiator, reason string) *DeletedSection {
	if c.Deleted == nil {
		c.Deleted = &DeletedSection{}
	}
	c.Deleted.Initiator = initiator
	c.Deleted.Reason = reason
	return c.Deleted
}

func (c *Channel) PrepareHistory() {
	if c.Stats == nil {
		return
	}
	c.history = stats.NewHistory(&c.Stats.Anchor, c.Stats.HistoryFields())
	c.rawHistory = stats.NewRawHistory(&c.Stats.Anchor, c.Stats.RawHistoryFields())
}

func (c *Channel) UpdateHistory() error {
	if c.history != nil {
		if err := c.history.Update(); err != nil {
			return err
		}
	}
	if c.rawHistory != nil {
		if err := c.rawHistory.Update(); err != nil {
			return err
		}
	}
	return nil
}
