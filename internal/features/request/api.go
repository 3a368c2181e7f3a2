package request

import (
	"go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RequestApi struct {
	controller *RequestController
	config     *config.Config
}

func NewRequestApi(controller *RequestController, config *config.Config) api.Route {
	return &RequestApi{
		controller: controller,
		config:     config,
	}
}

func (h *RequestApi) Setup(app *fiber.App) {
	requests := app.Group("/api/requests", middleware.AuthMiddleware(h.config.SkipAuth))

	requests.Post("/", h.controller.CreateRequest)
	requests.Get("/", h.controller.ListRequests)
	requests.Get("/pending", h.controller.ListPending)
	requests.Get("/export", h.controller.ExportRequests)
	requests.Get("/number/:number", h.controller.GetRequestByNumber)
	requests.Get("/:id", h.controller.GetRequest)
	requests.Post("/:id/submit", h.controller.SubmitRequest)
	requests.Post("/:id/actions", h.controller.ActOnRequest)
	requests.Post("/:id/cancel", h.controller.CancelRequest)
}
