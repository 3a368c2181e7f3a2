package workflow

import (
	"errors"
	"strconv"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"

	"github.com/gofiber/fiber/v2"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrValidationFailed):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrNotAuthorized):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// CreateWorkflow godoc
// @Summary Create a workflow
// @Description Create a new approval workflow in draft status
// @Tags workflows
// @Accept json
// @Produce json
// @Param workflow body models.Workflow true "Workflow"
// @Success 201 {object} models.Workflow
// @Failure 400 {object} map[string]string
// @Router /api/workflows [post]
func (ctrl *WorkflowController) CreateWorkflow(c *fiber.Ctx) error {
	var wf models.Workflow
	if err := c.BodyParser(&wf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateWorkflow(c.UserContext(), &wf); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

// UpdateWorkflow godoc
// @Summary Update a workflow
// @Description Update a draft or inactive workflow
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param workflow body models.Workflow true "Workflow"
// @Success 200 {object} map[string]string
// @Router /api/workflows/{id} [put]
func (ctrl *WorkflowController) UpdateWorkflow(c *fiber.Ctx) error {
	var wf models.Workflow
	if err := c.BodyParser(&wf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdateWorkflow(c.UserContext(), c.Params("id"), &wf); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Workflow updated successfully"})
}

// ChangeStatus godoc
// @Summary Change workflow status
// @Description Move a workflow between draft, active, inactive and archived
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} map[string]string
// @Router /api/workflows/{id}/status [put]
func (ctrl *WorkflowController) ChangeStatus(c *fiber.Ctx) error {
	var body struct {
		Status models.WorkflowStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status is required"})
	}

	if err := ctrl.Service.ChangeStatus(c.UserContext(), c.Params("id"), body.Status); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Workflow status updated"})
}

// DeleteWorkflow godoc
// @Summary Delete a workflow
// @Description Soft-delete a non-active workflow
// @Tags workflows
// @Param id path string true "Workflow ID"
// @Success 204 {object} nil
// @Router /api/workflows/{id} [delete]
func (ctrl *WorkflowController) DeleteWorkflow(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteWorkflow(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetWorkflow godoc
// @Summary Get a workflow by ID
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} models.Workflow
// @Failure 404 {object} map[string]string
// @Router /api/workflows/{id} [get]
func (ctrl *WorkflowController) GetWorkflow(c *fiber.Ctx) error {
	wf, err := ctrl.Service.GetWorkflowByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if wf == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workflow not found"})
	}
	return c.JSON(wf)
}

// ListWorkflows godoc
// @Summary List workflows
// @Tags workflows
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/workflows [get]
func (ctrl *WorkflowController) ListWorkflows(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filter := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if approvalType := c.Query("approval_type"); approvalType != "" {
		filter["approval_type"] = approvalType
	}

	workflows, total, err := ctrl.Service.ListWorkflows(c.UserContext(), filter, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"data":  workflows,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// MatchWorkflow godoc
// @Summary Preview workflow matching
// @Description Return the workflow a request with the given attributes would use
// @Tags workflows
// @Accept json
// @Produce json
// @Success 200 {object} models.Workflow
// @Failure 404 {object} map[string]string
// @Router /api/workflows/match [post]
func (ctrl *WorkflowController) MatchWorkflow(c *fiber.Ctx) error {
	var body struct {
		ApprovalType string                 `json:"approval_type"`
		Amount       *float64               `json:"amount"`
		Context      map[string]interface{} `json:"context"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if body.ApprovalType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "approval_type is required"})
	}

	wf, err := ctrl.Service.MatchWorkflow(c.UserContext(), body.ApprovalType, body.Amount, body.Context)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if wf == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No matching workflow"})
	}
	return c.JSON(wf)
}
