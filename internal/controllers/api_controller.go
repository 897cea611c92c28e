package controllers

import (
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"sds/internal/managers"
	"sds/internal/models"
	"sds/internal/providers"
	"sds/internal/services"
	"sds/internal/structures"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	conf     *structures.Config
	logger   providers.Logger
	cache    providers.CacheProviderInterface
	clock    providers.Clock
	ingest   services.IngestServiceInterface
	channels *managers.ChannelManager
	videos   *managers.VideoManager
	keywords *managers.KeywordManager
}

func NewApiController(
	conf *structures.Config,
	logger providers.Logger,
	cache providers.CacheProviderInterface,
	clock providers.Clock,
	ingest services.IngestServiceInterface,
	channels *managers.ChannelManager,
	videos *managers.VideoManager,
	keywords *managers.KeywordManager,
) *ApiController {
	return &ApiController{
		conf:     conf,
		logger:   logger,
		cache:    cache,
		clock:    clock,
		ingest:   ingest,
		channels: channels,
		videos:   videos,
		keywords: keywords,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// ReceiveStats accepts one counter observation and buffers it for the next
// flush.
func (ac *ApiController) ReceiveStats(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload models.StatsObservation
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if !payload.Valid() {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.ingest.AddObservation(&payload)
	w.WriteHeader(http.StatusCreated)
}

func (ac *ApiController) GetChannel(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "channel:"+id, func() (any, error) {
		docs, err := ac.channels.Get(r.Context(), []string{id})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return docs[0], nil
	})
}

func (ac *ApiController) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "video:"+id, func() (any, error) {
		docs, err := ac.videos.Get(r.Context(), []string{id})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return docs[0], nil
	})
}

func (ac *ApiController) GetKeyword(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "keyword:"+id, func() (any, error) {
		docs, err := ac.keywords.Get(r.Context(), []string{id})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return docs[0], nil
	})
}

type outdatedResponse struct {
	Kind string   `json:"kind"`
	IDs  []string `json:"ids"`
}

func parseIncludeEmpty(raw string) (managers.IncludeEmpty, bool) {
	switch raw {
	case "first":
		return managers.IncludeEmptyFirst, true
	case "last":
		return managers.IncludeEmptyLast, true
	case "no":
		return managers.IncludeEmptyNo, true
	}
	return 0, false
}

// GetOutdated lists entities due for a refresh. The include-empty policy is
// a required parameter: there is no silent default for where never-updated
// records go.
func (ac *ApiController) GetOutdated(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	policy, ok := parseIncludeEmpty(r.URL.Query().Get("policy"))
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	days := ac.conf.Freshness.OutdatedDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		days = parsed
	}
	limit := ac.conf.Freshness.BatchSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	cutoff := ac.clock.Now().AddDate(0, 0, -days)

	var ids []string
	var err error
	switch kind {
	case models.ChannelDocType:
		var docs []*models.Channel
		docs, err = ac.channels.GetForRefresh(r.Context(), models.SectionStats, cutoff, limit, policy)
		for _, doc := range docs {
			ids = append(ids, doc.ID())
		}
	case models.VideoDocType:
		var docs []*models.Video
		docs, err = ac.videos.GetForRefresh(r.Context(), models.SectionStats, cutoff, limit, policy)
		for _, doc := range docs {
			ids = append(ids, doc.ID())
		}
	case models.KeywordDocType:
		var docs []*models.Keyword
		docs, err = ac.keywords.GetForRefresh(r.Context(), models.SectionStats, cutoff, limit, policy)
		for _, doc := range docs {
			ids = append(ids, doc.ID())
		}
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Outdated listing for %s failed: %s", kind, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(outdatedResponse{Kind: kind, IDs: ids})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

type segmentRequest struct {
	Kind string   `json:"kind"`
	IDs  []string `json:"ids"`
	UUID string   `json:"uuid,omitempty"`
}

type segmentResponse struct {
	UUID string `json:"uuid"`
}

// AddToSegment adds entities to a segment, minting a new segment uuid when
// the request does not name one.
func (ac *ApiController) AddToSegment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.IDs) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var segmentUUID string
	var err error
	switch payload.Kind {
	case models.ChannelDocType:
		segmentUUID, err = ac.channels.AddToSegmentByIDs(r.Context(), payload.IDs, payload.UUID)
	case models.VideoDocType:
		segmentUUID, err = ac.videos.AddToSegmentByIDs(r.Context(), payload.IDs, payload.UUID)
	case models.KeywordDocType:
		segmentUUID, err = ac.keywords.AddToSegmentByIDs(r.Context(), payload.IDs, payload.UUID)
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err != nil {
		ac.logger.Errorf(providers.TypePost, "Segment update for %s failed: %s", payload.Kind, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, _ := json.Marshal(segmentResponse{UUID: segmentUUID})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

type deleteRequest struct {
	Kind      string   `json:"kind"`
	IDs       []string `json:"ids"`
	Initiator string   `json:"initiator"`
	Reason    string   `json:"reason,omitempty"`
}

// DeleteDocs marks entities logically deleted.
func (ac *ApiController) DeleteDocs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.IDs) == 0 || payload.Initiator == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var err error
	switch payload.Kind {
	case models.ChannelDocType:
		err = deleteByIDs(r, ac.channels.Base, payload)
	case models.VideoDocType:
		err = deleteByIDs(r, ac.videos.Base, payload)
	case models.KeywordDocType:
		err = deleteByIDs(r, ac.keywords.Base, payload)
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err != nil {
		ac.logger.Errorf(providers.TypePost, "Delete for %s failed: %s", payload.Kind, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func deleteByIDs[T models.Document](r *http.Request, base *managers.Base[T], payload deleteRequest) error {
	docs, err := base.Get(r.Context(), payload.IDs)
	if err != nil {
		return err
	}
	return base.Delete(r.Context(), docs, payload.Initiator, payload.Reason)
}
