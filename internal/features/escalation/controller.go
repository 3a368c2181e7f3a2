package escalation

import (
	"github.com/gofiber/fiber/v2"
)

type EscalationController struct {
	Service EscalationService
}

func NewEscalationController(service EscalationService) *EscalationController {
	return &EscalationController{Service: service}
}

// Scan godoc
// @Summary Run an escalation scan now
// @Description Applies escalation and timeout rules to every open request without waiting for the schedule
// @Tags escalations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/escalations/scan [post]
func (ctrl *EscalationController) Scan(c *fiber.Ctx) error {
	changed, err := ctrl.Service.Scan(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if changed == nil {
		changed = []string{}
	}
	return c.JSON(fiber.Map{
		"changed": changed,
		"count":   len(changed),
	})
}
