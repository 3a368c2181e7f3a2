package escalation

import (
	"go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EscalationApi struct {
	controller *EscalationController
	config     *config.Config
}

func NewEscalationApi(controller *EscalationController, config *config.Config) api.Route {
	return &EscalationApi{
		controller: controller,
		config:     config,
	}
}

func (h *EscalationApi) Setup(app *fiber.App) {
	escalations := app.Group("/api/escalations", middleware.AuthMiddleware(h.config.SkipAuth))

	escalations.Post("/scan", middleware.RequireRole(h.config.SkipAuth, "admin"), h.controller.Scan)
}
