package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sds/internal/controllers"
	"sds/internal/structures"
)

func TestInitRoutes(t *testing.T) {
	conf := &structures.Config{}
	router := InitRoutes(&controllers.ApiController{}, conf)

	urls := make([]string, 0)
	for _, route := range router.GetRoutes() {
		urls = append(urls, route.Url)
		require.NotNil(t, route.Handler, route.Url)
	}
	assert.Equal(t, []string{
		"/stats",
		"/channel",
		"/video",
		"/keyword",
		"/outdated",
		"/segment",
		"/delete",
	}, urls)
}
