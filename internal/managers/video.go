package managers

import (
	"context"

	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/query"
	"sds/internal/storage"
	"sds/internal/structures"
)

type VideoManager struct {
	*Base[*models.Video]
}

func NewVideoManager(
	conf *structures.Config,
	store storage.StoreInterface,
	cache providers.CacheProviderInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	clock providers.Clock,
) (*VideoManager, error) {
	base, err := newBase(
		conf, store, cache, logger, metrics, clock,
		models.VideoSchema(),
		[]string{
			models.SectionMain,
			models.SectionGeneralData,
			models.SectionStats,
			models.SectionChannel,
			models.SectionMonetization,
			models.SectionCaptions,
			models.SectionDeleted,
			models.SectionSegments,
		},
		models.SectionGeneralData,
		models.NewVideo,
	)
	if err != nil {
		return nil, err
	}
	return &VideoManager{Base: base}, nil
}

// ChannelVideosQuery matches alive videos belonging to one channel.
func (m *VideoManager) ChannelVideosQuery(channelID string) query.Query {
	q := query.NewBuilder().Must().Term().Field(models.VideoChannelIDField).Value(channelID)
	return m.FilterAlive(q)
}

// CountByChannel reports how many alive videos a channel has.
func (m *VideoManager) CountByChannel(ctx context.Context, channelID string) (int, error) {
	q := m.ChannelVideosQuery(channelID)
	return m.Count(ctx, &q)
}
