package system

import (
	"time"

	"go-approvals/internal/common/api"
	"go-approvals/internal/config"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	config *config.Config
}

func NewHealthApi(cfg *config.Config) api.Route {
	return &HealthApi{config: cfg}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    h.config.AppId,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
}
