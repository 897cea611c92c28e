package managers

import (
	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/storage"
	"sds/internal/structures"
)

type KeywordManager struct {
	*Base[*models.Keyword]
}

func NewKeywordManager(
	conf *structures.Config,
	store storage.StoreInterface,
	cache providers.CacheProviderInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	clock providers.Clock,
) (*KeywordManager, error) {
	base, err := newBase(
		conf, store, cache, logger, metrics, clock,
		models.KeywordSchema(),
		[]string{
			models.SectionMain,
			models.SectionStats,
			models.SectionDeleted,
			models.SectionSegments,
		},
		models.SectionStats,
		models.NewKeyword,
	)
	if err != nil {
		return nil, err
	}
	return &KeywordManager{Base: base}, nil
}
