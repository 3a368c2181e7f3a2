package escalation

import (
	"context"
	"time"

	"fmt"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/notification"
	"go-approvals/internal/features/request"
	"go-approvals/internal/features/workflow"

	"go.uber.org/zap"
)

type EscalationService interface {
	// Scan walks every open request and applies the escalation and timeout
	// rules of its current step. It returns the ids of the requests it changed.
	Scan(ctx context.Context) ([]string, error)
}

type EscalationServiceImpl struct {
	RequestRepo     request.RequestRepository
	WorkflowService workflow.WorkflowService
	Resolver        engine.ApproverResolver
	AuditService    audit.AuditService
	Notifications   notification.NotificationService
	Logger          *zap.Logger
}

func NewEscalationService(
	requestRepo request.RequestRepository,
	workflowService workflow.WorkflowService,
	resolver engine.ApproverResolver,
	auditService audit.AuditService,
	notifications notification.NotificationService,
	logger *zap.Logger,
) EscalationService {
	return &EscalationServiceImpl{
		RequestRepo:     requestRepo,
		WorkflowService: workflowService,
		Resolver:        resolver,
		AuditService:    auditService,
		Notifications:   notifications,
		Logger:          logger,
	}
}

// Scan is safe to run repeatedly. A rule that already fired leaves a trace in
// the step's actions and pending set, so a second pass over the same request
// is a no-op. One broken request never stops the sweep.
func (s *EscalationServiceImpl) Scan(ctx context.Context) ([]string, error) {
	requests, err := s.RequestRepo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var changed []string

	for i := range requests {
		req := &requests[i]
		if req.Status != models.RequestStatusInProgress {
			continue
		}

		wf, err := s.WorkflowService.GetWorkflowByID(ctx, req.WorkflowID.Hex())
		if err != nil || wf == nil {
			s.Logger.Warn("skipping request with unloadable workflow",
				zap.String("request_number", req.RequestNumber),
				zap.Error(err))
			continue
		}

		escalated, err := engine.Escalate(ctx, req, wf, s.Resolver, now)
		if err != nil {
			s.Logger.Warn("escalation failed",
				zap.String("request_number", req.RequestNumber),
				zap.Error(err))
			continue
		}
		if !escalated {
			continue
		}

		if err := s.RequestRepo.Update(ctx, req); err != nil {
			s.Logger.Warn("failed to save escalated request",
				zap.String("request_number", req.RequestNumber),
				zap.Error(err))
			continue
		}

		_ = s.AuditService.LogChange(ctx, models.AuditActionEscalation, "approval_request", req.ID.Hex(), map[string]models.Change{
			"status":       {New: req.Status},
			"current_step": {New: req.CurrentStep},
		})
		s.notify(ctx, req)
		changed = append(changed, req.ID.Hex())
	}

	s.Logger.Info("escalation scan finished",
		zap.Int("open_requests", len(requests)),
		zap.Int("changed", len(changed)))

	return changed, nil
}

func (s *EscalationServiceImpl) notify(ctx context.Context, req *models.ApprovalRequest) {
	link := "/requests/" + req.ID.Hex()

	switch req.Status {
	case models.RequestStatusApproved:
		s.Notifications.Notify(ctx, req.RequesterID, "Request approved",
			fmt.Sprintf("%s was approved via escalation", req.RequestNumber),
			notification.NotificationTypeSuccess, link)
		return
	case models.RequestStatusRejected:
		s.Notifications.Notify(ctx, req.RequesterID, "Request rejected",
			fmt.Sprintf("%s was rejected after its step timed out", req.RequestNumber),
			notification.NotificationTypeError, link)
		return
	}

	if req.CurrentStep >= len(req.StepStatuses) {
		return
	}
	ss := req.StepStatuses[req.CurrentStep]
	for _, approverID := range ss.PendingApprovers {
		s.Notifications.Notify(ctx, approverID, "Escalated approval",
			fmt.Sprintf("%s has been escalated and needs your approval", req.RequestNumber),
			notification.NotificationTypeWarning, link)
	}
}
