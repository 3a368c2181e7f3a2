package delegation

import (
	"go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DelegationApi struct {
	controller *DelegationController
	config     *config.Config
}

func NewDelegationApi(controller *DelegationController, config *config.Config) api.Route {
	return &DelegationApi{
		controller: controller,
		config:     config,
	}
}

func (h *DelegationApi) Setup(app *fiber.App) {
	delegations := app.Group("/api/delegations", middleware.AuthMiddleware(h.config.SkipAuth))

	delegations.Post("/", h.controller.CreateDelegation)
	delegations.Get("/", h.controller.ListDelegations)
	delegations.Get("/:id", h.controller.GetDelegation)
	delegations.Put("/:id", h.controller.UpdateDelegation)
	delegations.Post("/:id/revoke", h.controller.RevokeDelegation)
}
