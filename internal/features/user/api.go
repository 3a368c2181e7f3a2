package user

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
}

func NewUserApi(controller *UserController, config *config.Config) *UserApi {
	return &UserApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all user-related routes
func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))

	users.Post("/", middleware.RequireRole(h.config.SkipAuth, "admin"), h.controller.CreateUser)
	users.Get("/", h.controller.ListUsers)
	users.Get("/:id", h.controller.GetUser)
	users.Put("/:id", middleware.RequireRole(h.config.SkipAuth, "admin"), h.controller.UpdateUser)
	users.Put("/:id/status", middleware.RequireRole(h.config.SkipAuth, "admin"), h.controller.UpdateUserStatus)
}
