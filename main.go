package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"institution-manager/config"
	"institution-manager/database"
	"institution-manager/logger"
	"institution-manager/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: " + err.Error())
	}
	logger.Init(settings.LogDir)

	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       50 * 1024 * 1024, // 50MB body limit
	})

	db, err := database.InitDB(settings.Database)
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     settings.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Test-User",
		AllowCredentials: settings.FrontendURL != "*",
	}))

	asyncLogger, err := routes.SetupRoutes(app, db, settings)
	if err != nil {
		logger.Error("Failed to set up routes", err)
		return
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Shutdown failed", err)
		}
	}()

	logger.Success("Server is running on ip: " + settings.AppHost + " port: " + settings.AppPort)
	if err := app.Listen(settings.AppHost + ":" + settings.AppPort); err != nil {
		logger.Error("Server stopped", err)
	}
	asyncLogger.Close()
}
