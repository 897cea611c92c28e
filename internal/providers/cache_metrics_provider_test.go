package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type cacheMetricsTestMetrics struct {
	hits   int
	misses int
}

func (m *cacheMetricsTestMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *cacheMetricsTestMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *cacheMetricsTestMetrics) IncCacheHits()                                    { m.hits++ }
func (m *cacheMetricsTestMetrics) IncCacheMisses()                                  { m.misses++ }
func (m *cacheMetricsTestMetrics) IncBulkActions(_ string, _ int)                   {}
func (m *cacheMetricsTestMetrics) IncBulkRetries()                                  {}
func (m *cacheMetricsTestMetrics) ObserveFlushDuration(_ time.Duration)             {}
func (m *cacheMetricsTestMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (m *cacheMetricsTestMetrics) AddBackfilledDays(_ string, _ int)                {}
func (m *cacheMetricsTestMetrics) SetDocsTotal(_ string, _ int)                     {}
func (m *cacheMetricsTestMetrics) RegisterBufferGauge(_ BufferSizer)                {}

type cacheMetricsTestCache struct {
	data map[string][]byte
}

func (c *cacheMetricsTestCache) Get(key string) ([]byte, bool) {
	val, ok := c.data[key]
	return val, ok
}

func (c *cacheMetricsTestCache) Set(key string, value []byte) {
	c.data[key] = value
}

func TestMetricsCacheProvider_CountsHits(t *testing.T) {
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{
		inner:   &cacheMetricsTestCache{data: map[string][]byte{"k": []byte("v")}},
		metrics: metrics,
	}

	val, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 0, metrics.misses)
}

func TestMetricsCacheProvider_CountsMisses(t *testing.T) {
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{
		inner:   &cacheMetricsTestCache{data: map[string][]byte{}},
		metrics: metrics,
	}

	_, ok := cache.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestMetricsCacheProvider_SetPassesThrough(t *testing.T) {
	metrics := &cacheMetricsTestMetrics{}
	inner := &cacheMetricsTestCache{data: map[string][]byte{}}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	cache.Set("k", []byte("v"))
	assert.Equal(t, []byte("v"), inner.data["k"])
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 0, metrics.misses)
}

func TestNewInstrumentedCacheProvider_DisabledSkipsWrapping(t *testing.T) {
	conf := cacheConfig(false, 10, time.Second)
	c := NewInstrumentedCacheProvider(conf, &cacheTestLogger{}, &cacheMetricsTestMetrics{})
	assert.IsType(t, &noopCache{}, c)
}

func TestNewInstrumentedCacheProvider_EnabledWraps(t *testing.T) {
	conf := cacheConfig(true, 1, time.Second)
	c := NewInstrumentedCacheProvider(conf, &cacheTestLogger{}, &cacheMetricsTestMetrics{})
	assert.IsType(t, &MetricsCacheProvider{}, c)
}
