package request

import (
	"errors"
	"strconv"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"
	"go-approvals/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestController struct {
	Service RequestService
}

func NewRequestController(service RequestService) *RequestController {
	return &RequestController{Service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrValidationFailed):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidState), errors.Is(err, engine.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrNotAuthorized):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

type actionRequest struct {
	Action     models.ActionType `json:"action"`
	Comments   string            `json:"comments,omitempty"`
	DelegateTo string            `json:"delegate_to,omitempty"`
}

// CreateRequest godoc
// @Summary Create a draft approval request
// @Description Creates a draft request against an explicit workflow or the best matching active one
// @Tags requests
// @Accept json
// @Produce json
// @Param request body CreateRequestInput true "Request"
// @Success 201 {object} models.ApprovalRequest
// @Failure 400 {object} map[string]string
// @Router /api/requests [post]
func (ctrl *RequestController) CreateRequest(c *fiber.Ctx) error {
	var in CreateRequestInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req, err := ctrl.Service.CreateRequest(c.UserContext(), in)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// SubmitRequest godoc
// @Summary Submit a draft request for approval
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.ApprovalRequest
// @Failure 409 {object} map[string]string
// @Router /api/requests/{id}/submit [post]
func (ctrl *RequestController) SubmitRequest(c *fiber.Ctx) error {
	req, err := ctrl.Service.SubmitRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(req)
}

// ActOnRequest godoc
// @Summary Take an action on the current step
// @Description Approve, reject, delegate, escalate, request info or return the request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param action body actionRequest true "Action"
// @Success 200 {object} models.ApprovalRequest
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/requests/{id}/actions [post]
func (ctrl *RequestController) ActOnRequest(c *fiber.Ctx) error {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var body actionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req, err := ctrl.Service.ActOnRequest(c.UserContext(), c.Params("id"), engine.ActionInput{
		ActorID:    claims.UserID,
		Action:     body.Action,
		Comments:   body.Comments,
		DelegateTo: body.DelegateTo,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
	})
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(req)
}

// CancelRequest godoc
// @Summary Cancel an open request
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.ApprovalRequest
// @Router /api/requests/{id}/cancel [post]
func (ctrl *RequestController) CancelRequest(c *fiber.Ctx) error {
	req, err := ctrl.Service.CancelRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(req)
}

// GetRequest godoc
// @Summary Get a request by ID
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.ApprovalRequest
// @Failure 404 {object} map[string]string
// @Router /api/requests/{id} [get]
func (ctrl *RequestController) GetRequest(c *fiber.Ctx) error {
	req, err := ctrl.Service.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if req == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	}
	return c.JSON(req)
}

// GetRequestByNumber godoc
// @Summary Get a request by request number
// @Tags requests
// @Produce json
// @Param number path string true "Request number, e.g. APR-2026-000042"
// @Success 200 {object} models.ApprovalRequest
// @Failure 404 {object} map[string]string
// @Router /api/requests/number/{number} [get]
func (ctrl *RequestController) GetRequestByNumber(c *fiber.Ctx) error {
	req, err := ctrl.Service.GetRequestByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if req == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	}
	return c.JSON(req)
}

func listFilter(c *fiber.Ctx) map[string]interface{} {
	filter := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if entityType := c.Query("entity_type"); entityType != "" {
		filter["entity_type"] = entityType
	}
	if requester := c.Query("requester_id"); requester != "" {
		filter["requester_id"] = requester
	}
	if workflowID := c.Query("workflow_id"); workflowID != "" {
		if oid, err := primitive.ObjectIDFromHex(workflowID); err == nil {
			filter["workflow_id"] = oid
		}
	}
	return filter
}

// ListRequests godoc
// @Summary List requests
// @Tags requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param entity_type query string false "Filter by entity type"
// @Param requester_id query string false "Filter by requester"
// @Success 200 {object} map[string]interface{}
// @Router /api/requests [get]
func (ctrl *RequestController) ListRequests(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	requests, total, err := ctrl.Service.ListRequests(c.UserContext(), listFilter(c), page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"data":  requests,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// ListPending godoc
// @Summary List requests waiting on the current user
// @Tags requests
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/requests/pending [get]
func (ctrl *RequestController) ListPending(c *fiber.Ctx) error {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	requests, err := ctrl.Service.ListPendingFor(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"data": requests, "total": len(requests)})
}

// ExportRequests godoc
// @Summary Export requests as XLSX
// @Tags requests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /api/requests/export [get]
func (ctrl *RequestController) ExportRequests(c *fiber.Ctx) error {
	data, filename, err := ctrl.Service.ExportRequests(c.UserContext(), listFilter(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
