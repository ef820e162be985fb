package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/controllers"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Session auth
	v1.Post("/auth/login", controllers.HandleAuthLogin)
	v1.Post("/auth/logout", middleware.RequireAPISessionAuth, controllers.HandleAuthLogout)

	// Connection lifecycle (session protected)
	conns := v1.Group("/connections", middleware.RequireAPISessionAuth)
	conns.Get("/", controllers.HandleListConnections)
	conns.Post("/sync", controllers.HandleSyncConnections)
	conns.Get("/pending/:setupCode/resources", controllers.HandlePendingResources)
	conns.Post("/pending/:setupCode/complete", controllers.HandleCompletePending)
	conns.Delete("/:provider", controllers.HandleDisconnect)

	// Cached provider data
	v1.Get("/business/location", middleware.RequireAPISessionAuth, controllers.HandleLocationDetail)

	// Internal maintenance endpoints (service-to-service key)
	internal := v1.Group("/internal", middleware.InternalAPIKeyMiddleware())
	internal.Get("/jobs/stats", controllers.HandleJobStats)
	internal.Get("/jobs/:id", controllers.HandleGetJob)
	internal.Post("/jobs/pending-sweep", controllers.HandleTriggerPendingSweep)
	internal.Get("/connections/:id/credentials", controllers.HandleResolveCredentials)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
