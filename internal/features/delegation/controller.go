package delegation

import (
	"errors"
	"strconv"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"

	"github.com/gofiber/fiber/v2"
)

type DelegationController struct {
	Service DelegationService
}

func NewDelegationController(service DelegationService) *DelegationController {
	return &DelegationController{Service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrValidationFailed):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrNotAuthorized):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// CreateDelegation godoc
// @Summary Create a delegation
// @Description Grant one user's approval authority to another for a date range
// @Tags delegations
// @Accept json
// @Produce json
// @Param delegation body models.Delegation true "Delegation"
// @Success 201 {object} models.Delegation
// @Failure 400 {object} map[string]string
// @Router /api/delegations [post]
func (ctrl *DelegationController) CreateDelegation(c *fiber.Ctx) error {
	var d models.Delegation
	if err := c.BodyParser(&d); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateDelegation(c.UserContext(), &d); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(d)
}

// UpdateDelegation godoc
// @Summary Update a delegation
// @Tags delegations
// @Accept json
// @Produce json
// @Param id path string true "Delegation ID"
// @Success 200 {object} map[string]string
// @Router /api/delegations/{id} [put]
func (ctrl *DelegationController) UpdateDelegation(c *fiber.Ctx) error {
	var d models.Delegation
	if err := c.BodyParser(&d); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdateDelegation(c.UserContext(), c.Params("id"), &d); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Delegation updated successfully"})
}

// RevokeDelegation godoc
// @Summary Revoke a delegation
// @Tags delegations
// @Param id path string true "Delegation ID"
// @Success 200 {object} map[string]string
// @Router /api/delegations/{id}/revoke [post]
func (ctrl *DelegationController) RevokeDelegation(c *fiber.Ctx) error {
	if err := ctrl.Service.RevokeDelegation(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Delegation revoked"})
}

// GetDelegation godoc
// @Summary Get a delegation by ID
// @Tags delegations
// @Produce json
// @Param id path string true "Delegation ID"
// @Success 200 {object} models.Delegation
// @Failure 404 {object} map[string]string
// @Router /api/delegations/{id} [get]
func (ctrl *DelegationController) GetDelegation(c *fiber.Ctx) error {
	d, err := ctrl.Service.GetDelegationByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if d == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Delegation not found"})
	}
	return c.JSON(d)
}

// ListDelegations godoc
// @Summary List delegations
// @Tags delegations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/delegations [get]
func (ctrl *DelegationController) ListDelegations(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filter := make(map[string]interface{})
	if delegator := c.Query("delegator_id"); delegator != "" {
		filter["delegator_id"] = delegator
	}
	if delegate := c.Query("delegate_id"); delegate != "" {
		filter["delegate_id"] = delegate
	}
	if active := c.Query("active"); active != "" {
		filter["active"] = active == "true"
	}

	delegations, total, err := ctrl.Service.ListDelegations(c.UserContext(), filter, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"data":  delegations,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
