package internal

import (
	"net/http"

	"netguard/internal/controllers"
	"netguard/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/devices/register", http.HandlerFunc(apiController.RegisterDevice))
	routers.Post("/devices/block", http.HandlerFunc(apiController.BlockDevice))
	routers.Post("/devices/unblock", http.HandlerFunc(apiController.UnblockDevice))
	routers.Post("/devices/limit", http.HandlerFunc(apiController.SetDailyLimit))
	routers.Post("/devices/restrictions", http.HandlerFunc(apiController.SetRestrictions))
	routers.Post("/devices/bind", http.HandlerFunc(apiController.BindInterface))
	routers.Post("/sites/block", http.HandlerFunc(apiController.BlockSite))
	routers.Post("/sites/unblock", http.HandlerFunc(apiController.UnblockSite))
	routers.Post("/sites/category", http.HandlerFunc(apiController.SetSiteCategory))
	routers.Get("/devices/status", http.HandlerFunc(apiController.GetDeviceStatus))
	routers.Get("/devices/list", http.HandlerFunc(apiController.GetDevices))
	routers.Get("/report", http.HandlerFunc(apiController.GetUsageReport))
	routers.Get("/history", http.HandlerFunc(apiController.GetAccessHistory))
	routers.Get("/sites/list", http.HandlerFunc(apiController.GetBlockedSites))
	return routers
}
