package request

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/delegation"
	"go-approvals/internal/features/notification"
	"go-approvals/internal/features/workflow"
	"go-approvals/pkg/utils"

	"go.uber.org/zap"
)

// CreateRequestInput selects the workflow either explicitly by id or code, or
// implicitly by matching EntityType, Amount and Context against the active
// workflow definitions.
type CreateRequestInput struct {
	WorkflowID   string `json:"workflow_id,omitempty"`
	WorkflowCode string `json:"workflow_code,omitempty"`

	Title      string                 `json:"title,omitempty"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Amount     *float64               `json:"amount,omitempty"`
	Currency   string                 `json:"currency,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	DueAt      *time.Time             `json:"due_at,omitempty"`
}

type RequestService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ApprovalRequest, error)
	SubmitRequest(ctx context.Context, id string) (*models.ApprovalRequest, error)
	ActOnRequest(ctx context.Context, id string, in engine.ActionInput) (*models.ApprovalRequest, error)
	CancelRequest(ctx context.Context, id string) (*models.ApprovalRequest, error)
	GetRequest(ctx context.Context, id string) (*models.ApprovalRequest, error)
	GetRequestByNumber(ctx context.Context, number string) (*models.ApprovalRequest, error)
	ListRequests(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.ApprovalRequest, int64, error)
	ListPendingFor(ctx context.Context, userID string) ([]models.ApprovalRequest, error)
	ExportRequests(ctx context.Context, filter map[string]interface{}) ([]byte, string, error)
}

type RequestServiceImpl struct {
	Repo              RequestRepository
	Sequences         SequenceRepository
	WorkflowService   workflow.WorkflowService
	DelegationService delegation.DelegationService
	Resolver          engine.ApproverResolver
	AuditService      audit.AuditService
	Notifications     notification.NotificationService
	Logger            *zap.Logger
}

func NewRequestService(
	repo RequestRepository,
	sequences SequenceRepository,
	workflowService workflow.WorkflowService,
	delegationService delegation.DelegationService,
	resolver engine.ApproverResolver,
	auditService audit.AuditService,
	notifications notification.NotificationService,
	logger *zap.Logger,
) RequestService {
	return &RequestServiceImpl{
		Repo:              repo,
		Sequences:         sequences,
		WorkflowService:   workflowService,
		DelegationService: delegationService,
		Resolver:          resolver,
		AuditService:      auditService,
		Notifications:     notifications,
		Logger:            logger,
	}
}

func (s *RequestServiceImpl) resolveWorkflow(ctx context.Context, in CreateRequestInput) (*models.Workflow, error) {
	switch {
	case in.WorkflowID != "":
		return s.WorkflowService.GetWorkflowByID(ctx, in.WorkflowID)
	case in.WorkflowCode != "":
		return s.WorkflowService.GetWorkflowByCode(ctx, in.WorkflowCode)
	default:
		return s.WorkflowService.MatchWorkflow(ctx, in.EntityType, in.Amount, in.Context)
	}
}

func (s *RequestServiceImpl) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ApprovalRequest, error) {
	if in.EntityType == "" || in.EntityID == "" {
		return nil, fmt.Errorf("%w: entity_type and entity_id are required", engine.ErrValidationFailed)
	}

	claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("%w: missing user identity", engine.ErrNotAuthorized)
	}

	wf, err := s.resolveWorkflow(ctx, in)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("%w: no workflow matches the request", engine.ErrNotFound)
	}

	now := time.Now()
	req, err := engine.NewRequest(wf, engine.RequestInput{
		RequesterID: claims.UserID,
		Title:       in.Title,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Context:     in.Context,
		DueAt:       in.DueAt,
	}, now)
	if err != nil {
		return nil, err
	}

	number, err := s.Sequences.NextRequestNumber(ctx, now.UTC().Year())
	if err != nil {
		return nil, err
	}
	req.RequestNumber = number

	if err := s.Repo.Create(ctx, req); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "approval_request", req.ID.Hex(), map[string]models.Change{
		"request_number": {New: req.RequestNumber},
		"workflow_id":    {New: wf.ID.Hex()},
		"entity_type":    {New: req.EntityType},
		"entity_id":      {New: req.EntityID},
	})

	return req, nil
}

func (s *RequestServiceImpl) SubmitRequest(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	req, wf, err := s.loadRequestAndWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok && claims != nil {
		if claims.UserID != req.RequesterID && !slices.Contains(claims.Roles, "admin") {
			return nil, fmt.Errorf("%w: only the requester can submit", engine.ErrNotAuthorized)
		}
	}

	if err := engine.Submit(ctx, req, wf, s.Resolver, time.Now()); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, req); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "approval_request", req.ID.Hex(), map[string]models.Change{
		"status": {Old: models.RequestStatusDraft, New: req.Status},
	})

	if wf.NotifyOnSubmit {
		s.notifyPendingApprovers(ctx, req)
	}
	s.notifyRequesterOnCompletion(ctx, req, wf)

	return req, nil
}

func (s *RequestServiceImpl) ActOnRequest(ctx context.Context, id string, in engine.ActionInput) (*models.ApprovalRequest, error) {
	req, wf, err := s.loadRequestAndWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	delegations, err := s.DelegationService.ActiveDelegationsFor(ctx, in.ActorID, time.Now())
	if err != nil {
		s.Logger.Warn("failed to load delegations, acting without them",
			zap.String("actor_id", in.ActorID),
			zap.Error(err))
		delegations = nil
	}

	prevStatus := req.Status
	prevStep := req.CurrentStep

	if err := engine.TakeAction(ctx, req, wf, delegations, in, s.Resolver, time.Now()); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, req); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionApproval, "approval_request", req.ID.Hex(), map[string]models.Change{
		"action": {New: in.Action},
		"status": {Old: prevStatus, New: req.Status},
	})

	if req.CurrentStep != prevStep && !req.Status.IsTerminal() {
		s.notifyPendingApprovers(ctx, req)
	}
	s.notifyRequesterOnCompletion(ctx, req, wf)

	return req, nil
}

func (s *RequestServiceImpl) CancelRequest(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	req, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, engine.ErrNotFound
	}

	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok && claims != nil {
		if claims.UserID != req.RequesterID && !slices.Contains(claims.Roles, "admin") {
			return nil, fmt.Errorf("%w: only the requester can cancel", engine.ErrNotAuthorized)
		}
	}

	prevStatus := req.Status
	if err := engine.Cancel(req, time.Now()); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, req); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "approval_request", req.ID.Hex(), map[string]models.Change{
		"status": {Old: prevStatus, New: req.Status},
	})

	return req, nil
}

func (s *RequestServiceImpl) GetRequest(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *RequestServiceImpl) GetRequestByNumber(ctx context.Context, number string) (*models.ApprovalRequest, error) {
	if !engine.ValidRequestNumber(number) {
		return nil, fmt.Errorf("%w: malformed request number %s", engine.ErrValidationFailed, number)
	}
	return s.Repo.GetByRequestNumber(ctx, number)
}

func (s *RequestServiceImpl) ListRequests(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.ApprovalRequest, int64, error) {
	if filter == nil {
		filter = make(map[string]interface{})
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, filter, limit, offset)
}

func (s *RequestServiceImpl) ListPendingFor(ctx context.Context, userID string) ([]models.ApprovalRequest, error) {
	return s.Repo.ListPendingFor(ctx, userID)
}

func (s *RequestServiceImpl) loadRequestAndWorkflow(ctx context.Context, id string) (*models.ApprovalRequest, *models.Workflow, error) {
	req, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, engine.ErrNotFound
	}

	wf, err := s.WorkflowService.GetWorkflowByID(ctx, req.WorkflowID.Hex())
	if err != nil {
		return nil, nil, err
	}
	if wf == nil {
		return nil, nil, fmt.Errorf("%w: workflow %s", engine.ErrNotFound, req.WorkflowID.Hex())
	}
	return req, wf, nil
}

func (s *RequestServiceImpl) notifyPendingApprovers(ctx context.Context, req *models.ApprovalRequest) {
	if req.CurrentStep >= len(req.StepStatuses) {
		return
	}
	ss := req.StepStatuses[req.CurrentStep]
	for _, approverID := range ss.PendingApprovers {
		s.Notifications.Notify(ctx, approverID,
			"Approval needed",
			fmt.Sprintf("%s is waiting for your approval (step %q)", req.RequestNumber, ss.Name),
			notification.NotificationTypeApproval,
			"/requests/"+req.ID.Hex(),
		)
	}
}

func (s *RequestServiceImpl) notifyRequesterOnCompletion(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow) {
	switch req.Status {
	case models.RequestStatusApproved:
		if wf.NotifyOnApprove {
			s.Notifications.Notify(ctx, req.RequesterID,
				"Request approved",
				fmt.Sprintf("%s has been approved", req.RequestNumber),
				notification.NotificationTypeSuccess,
				"/requests/"+req.ID.Hex(),
			)
		}
	case models.RequestStatusRejected:
		if wf.NotifyOnReject {
			s.Notifications.Notify(ctx, req.RequesterID,
				"Request rejected",
				fmt.Sprintf("%s has been rejected", req.RequestNumber),
				notification.NotificationTypeError,
				"/requests/"+req.ID.Hex(),
			)
		}
	}
}
