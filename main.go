package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/cache"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/database"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/env"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/jobqueue"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// background workers (reconcile, detail refresh, pending sweep)
	manager := jobqueue.GetManager()
	manager.Start()

	// graceful shutdown flushes counters and drains workers
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		manager.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		AppName: "Adfluens Connect",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
