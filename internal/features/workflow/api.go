package workflow

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, config *config.Config) *WorkflowApi {
	return &WorkflowApi{
		controller: controller,
		config:     config,
	}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	workflows := app.Group("/api/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	workflows.Post("/", middleware.RequireRole(h.config.SkipAuth, "admin", "workflow_admin"), h.controller.CreateWorkflow)
	workflows.Get("/", h.controller.ListWorkflows)
	workflows.Post("/match", h.controller.MatchWorkflow)
	workflows.Get("/:id", h.controller.GetWorkflow)
	workflows.Put("/:id", middleware.RequireRole(h.config.SkipAuth, "admin", "workflow_admin"), h.controller.UpdateWorkflow)
	workflows.Put("/:id/status", middleware.RequireRole(h.config.SkipAuth, "admin", "workflow_admin"), h.controller.ChangeStatus)
	workflows.Delete("/:id", middleware.RequireRole(h.config.SkipAuth, "admin", "workflow_admin"), h.controller.DeleteWorkflow)
}
