package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/blog/api/http/handlers"
)

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, auth *handlers.AuthHandler, posts *handlers.PostsHandler, health *handlers.HealthHandler, authMW fiber.Handler) {
	api := app.Group("/api")

	// Health and readiness endpoints for probes/monitoring
	api.Get("/health", health.Health)
	api.Get("/ready", health.Ready)

	api.Post("/register", auth.Register)
	api.Post("/login", auth.Login)
	api.Get("/profile", authMW, auth.Profile)
	api.Post("/forgot-password", auth.ForgotPassword)
	api.Post("/reset-password", auth.ResetPassword)

	api.Get("/posts", posts.List)
	api.Get("/posts/:id", posts.GetByID)
	api.Post("/posts", authMW, posts.Create)
	api.Put("/posts/:id", authMW, posts.Update)
	api.Delete("/posts/:id", authMW, posts.Delete)
}
