package router

import (
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/controllers"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/middleware"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// OAuth connect flow. The callback carries its context in the signed
	// state blob, so it needs no session middleware of its own.
	app.Get("/auth/:provider/connect", middleware.RequireAuth, controllers.HandleProviderConnect)
	app.Get("/auth/:provider/callback", controllers.HandleProviderCallback)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
