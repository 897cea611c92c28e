package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterProvider_RegistersRoutes(t *testing.T) {
	rp := NewRouterProvider()

	rp.Get("/channel", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rp.Post("/stats", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	routes := rp.GetRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/channel", routes[0].Url)
	assert.Equal(t, "/stats", routes[1].Url)
}

func TestRouterProvider_MethodEnforcement(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/channel", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler := rp.GetRoutes()[0].Handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channel", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/channel", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterProvider_EmptyByDefault(t *testing.T) {
	rp := NewRouterProvider()
	assert.Empty(t, rp.GetRoutes())
}
