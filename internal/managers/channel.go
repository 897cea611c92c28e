package managers

import (
	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/query"
	"sds/internal/storage"
	"sds/internal/structures"
)

type ChannelManager struct {
	*Base[*models.Channel]
}

func NewChannelManager(
	conf *structures.Config,
	store storage.StoreInterface,
	cache providers.CacheProviderInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	clock providers.Clock,
) (*ChannelManager, error) {
	base, err := newBase(
		conf, store, cache, logger, metrics, clock,
		models.ChannelSchema(),
		[]string{
			models.SectionMain,
			models.SectionGeneralData,
			models.SectionStats,
			models.SectionMonetization,
			models.SectionSocial,
			models.SectionCMS,
			models.SectionBrandSafety,
			models.SectionCustomProperties,
			models.SectionDeleted,
			models.SectionSegments,
		},
		models.SectionGeneralData,
		models.NewChannel,
	)
	if err != nil {
		return nil, err
	}
	return &ChannelManager{Base: base}, nil
}

// ForcedFilters additionally requires general_data: a channel that was never
// described is not servable no matter how fresh its counters are.
func (m *ChannelManager) ForcedFilters() query.Query {
	q := m.Base.ForcedFilters()
	return q.And(query.NewBuilder().Must().Exists().Field(models.SectionGeneralData))
}
