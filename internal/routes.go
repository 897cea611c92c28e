package internal

import (
	"net/http"

	"sds/internal/controllers"
	"sds/internal/providers"
	"sds/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/stats", http.HandlerFunc(apiController.ReceiveStats))
	routers.Get("/channel", http.HandlerFunc(apiController.GetChannel))
	routers.Get("/video", http.HandlerFunc(apiController.GetVideo))
	routers.Get("/keyword", http.HandlerFunc(apiController.GetKeyword))
	routers.Get("/outdated", http.HandlerFunc(apiController.GetOutdated))
	routers.Post("/segment", http.HandlerFunc(apiController.AddToSegment))
	routers.Post("/delete", http.HandlerFunc(apiController.DeleteDocs))
	return routers
}
