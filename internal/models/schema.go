package models

// Schema is the section registry for one document type: which sections
// exist, which fields each section owns, and which section carries the
// identity. Schemas are built once at startup and read-only afterwards,
// so they need no locking.
type Schema struct {
	docType  string
	index    string
	sections map[string]map[string]struct{}
}

func newSchema(docType, index string, sections map[string][]string) *Schema {
	s := &Schema{
		docType:  docType,
		index:    index,
		sections: make(map[string]map[string]struct{}, len(sections)),
	}
	for name, fields := range sections {
		set := make(map[string]struct{}, len(fields)+2)
		set[FieldCreatedAt] = struct{}{}
		set[FieldUpdatedAt] = struct{}{}
		for _, f := range fields {
			set[f] = struct{}{}
		}
		s.sections[name] = set
	}
	return s
}

func (s *Schema) DocType() string {
	return s.docType
}

func (s *Schema) Index() string {
	return s.index
}

func (s *Schema) HasSection(name string) bool {
	_, ok := s.sections[name]
	return ok
}

func (s *Schema) SectionNames() []string {
	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	return names
}

// KnownField reports whether the section's mapping owns the field.
func (s *Schema) KnownField(section, field string) bool {
	fields, ok := s.sections[section]
	if !ok {
		return false
	}
	_, ok = fields[field]
	return ok
}

// UnknownFields returns the patch keys the section's mapping does not own.
// The upsert engine nulls these instead of dropping them: the backend never
// removes a field it was not told about.
func (s *Schema) UnknownFields(section string, patch map[string]any) []string {
	fields, ok := s.sections[section]
	if !ok {
		return nil
	}
	var unknown []string
	for key := range patch {
		if _, known := fields[key]; !known {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

var (
	channelSchema = newSchema(ChannelDocType, ChannelIndex, map[string][]string{
		SectionMain:    {"id"},
		SectionDeleted: {"initiator", "reason"},
		SectionSegments: {
			"uuid",
		},
		SectionGeneralData: {
			"title", "description", "thumbnail_image_url", "country_code",
			"top_category", "top_lang_code", "lang_codes", "emails",
			"iab_categories", "made_for_kids", "youtube_published_at",
		},
		SectionStats: {
			"fetched_at", "historydate", "last_video_published_at",
			"subscribers", "subscribers_history", "subscribers_raw_history",
			"views", "views_history", "views_raw_history",
			"total_videos_count", "total_videos_count_history",
			"observed_videos_count", "observed_videos_count_history",
			"views_per_video", "views_per_video_history",
			"last_day_views", "last_7day_views", "last_30day_views",
			"last_30day_subscribers",
			"sentiment", "sentiment_history",
			"engage_rate", "engage_rate_history",
			"channel_group", "hidden_subscriber_count",
		},
		SectionMonetization: {"is_monetizable", "rate", "preferred"},
		SectionSocial: {
			"facebook_link", "facebook_likes", "twitter_link",
			"twitter_followers", "instagram_link", "instagram_followers",
		},
		SectionCMS: {"content_owner_id", "cms_title"},
		SectionBrandSafety: {
			"overall_score", "videos_scored", "language", "rescore",
			"limbo_status", "pre_limbo_score",
		},
		SectionCustomProperties: {"preferred", "is_tracked", "channel_group"},
	})

	videoSchema = newSchema(VideoDocType, VideoIndex, map[string][]string{
		SectionMain:     {"id"},
		SectionDeleted:  {"initiator", "reason"},
		SectionSegments: {"uuid"},
		SectionGeneralData: {
			"title", "description", "thumbnail_image_url", "country_code",
			"lang_code", "category", "iab_categories", "tags", "duration",
			"youtube_published_at",
		},
		SectionStats: {
			"fetched_at", "historydate",
			"views", "views_history", "views_raw_history",
			"likes", "likes_history",
			"dislikes", "dislikes_history",
			"comments", "comments_history",
			"last_day_views", "last_30day_views",
			"sentiment", "sentiment_history",
			"engage_rate", "engage_rate_history",
			"flags_count",
		},
		SectionChannel:      {"id", "title"},
		SectionMonetization: {"is_monetizable"},
		SectionCaptions:     {"has_transcripts", "items"},
	})

	keywordSchema = newSchema(KeywordDocType, KeywordIndex, map[string][]string{
		SectionMain:     {"id"},
		SectionDeleted:  {"initiator", "reason"},
		SectionSegments: {"uuid"},
		SectionStats: {
			"fetched_at", "historydate",
			"views", "views_history", "views_raw_history",
			"monthly_searches", "videos_count",
		},
	})
)

func ChannelSchema() *Schema { return channelSchema }
func VideoSchema() *Schema   { return videoSchema }
func KeywordSchema() *Schema { return keywordSchema }
