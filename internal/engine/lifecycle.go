package engine

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-approvals/internal/common/models"
	"go-approvals/pkg/condition"
)

// ApproverResolver turns an approver descriptor into concrete user ids at
// the moment a step activates. User approvers resolve to themselves; role,
// manager, department-head and dynamic approvers are looked up by the host.
type ApproverResolver interface {
	Resolve(ctx context.Context, req *models.ApprovalRequest, approver models.Approver) ([]string, error)
}

// RequestInput carries the caller-supplied fields of a new request.
type RequestInput struct {
	RequesterID string
	Title       string
	EntityType  string
	EntityID    string
	Amount      *float64
	Currency    string
	Context     map[string]interface{}
	DueAt       *time.Time
}

// ActionInput carries one user action against the current step.
type ActionInput struct {
	ActorID    string
	Action     models.ActionType
	Comments   string
	DelegateTo string
	IPAddress  string
	UserAgent  string
}

var requestNumberPattern = regexp.MustCompile(`^APR-\d{4}-\d{6}$`)

// ValidRequestNumber reports whether s matches APR-<year>-<6-digit seq>.
// Number generation itself belongs to the host's per-tenant sequence.
func ValidRequestNumber(s string) bool {
	return requestNumberPattern.MatchString(s)
}

// NewRequest builds a draft request against an active workflow, snapshotting
// per-step required-approval counts, the literal approver-id pending sets
// and the approver descriptors. Later edits to the workflow never touch the
// snapshot.
func NewRequest(wf *models.Workflow, in RequestInput, now time.Time) (*models.ApprovalRequest, error) {
	if wf == nil {
		return nil, ErrNotFound
	}
	if wf.Status != models.WorkflowStatusActive {
		return nil, ErrInvalidState
	}

	statuses := make([]models.StepStatus, 0, len(wf.Steps))
	for _, step := range wf.Steps {
		statuses = append(statuses, models.StepStatus{
			StepID:            step.ID,
			Name:              step.Name,
			Type:              step.Type,
			State:             models.StepStatePending,
			RequiredApprovals: RequiredApprovals(step.Type, step.Approvers),
			PendingApprovers:  literalApproverIDs(step.Approvers),
			Approvers:         slices.Clone(step.Approvers),
		})
	}

	return &models.ApprovalRequest{
		TenantID:     wf.TenantID,
		WorkflowID:   wf.ID,
		Title:        in.Title,
		Status:       models.RequestStatusDraft,
		RequesterID:  in.RequesterID,
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		Amount:       in.Amount,
		Currency:     in.Currency,
		Context:      in.Context,
		CurrentStep:  0,
		StepStatuses: statuses,
		DueAt:        in.DueAt,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Submit moves a draft to pending and, when the workflow has steps,
// activates step zero in the same call so the externally visible status
// becomes in_progress. Pending stays observable only for the degenerate
// zero-step case.
func Submit(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow, resolver ApproverResolver, now time.Time) error {
	if req.Status != models.RequestStatusDraft {
		return ErrInvalidState
	}

	req.SubmittedAt = &now
	req.Status = models.RequestStatusPending
	req.UpdatedAt = now

	if len(req.StepStatuses) == 0 {
		return nil
	}
	return activateStep(ctx, req, wf, 0, resolver, now)
}

// TakeAction applies one action to the request's current step. The actor
// must be a pending approver, directly or as the delegate of one; in the
// delegated case the delegator is the identity counted and removed from the
// pending set. All precondition checks run before any mutation.
//
// escalate and request_info are recorded in the action history but change no
// state; in particular request_info does not pause the step's clock.
func TakeAction(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow, delegations []models.Delegation, in ActionInput, resolver ApproverResolver, now time.Time) error {
	if req.Status != models.RequestStatusPending && req.Status != models.RequestStatusInProgress {
		return ErrInvalidState
	}
	if req.CurrentStep < 0 || req.CurrentStep >= len(req.StepStatuses) {
		return ErrInvalidState
	}
	ss := &req.StepStatuses[req.CurrentStep]
	if ss.State != models.StepStateInProgress {
		return ErrInvalidState
	}

	actual := in.ActorID
	if !slices.Contains(ss.PendingApprovers, actual) {
		d := ResolveDelegator(delegations, in.ActorID, wf.ApprovalType, req.Amount, now)
		if d == nil || !slices.Contains(ss.PendingApprovers, d.DelegatorID) {
			return ErrNotAuthorized
		}
		actual = d.DelegatorID
	}

	switch in.Action {
	case models.ActionApprove:
		if !wf.AllowSelfApproval && actual == req.RequesterID {
			return ErrNotAuthorized
		}
		if ss.Type == models.StepTypeSequence {
			if err := checkSequenceOrder(ss, actual); err != nil {
				return err
			}
		}
	case models.ActionReject:
		if wf.RequireCommentsOnReject && strings.TrimSpace(in.Comments) == "" {
			return ErrValidationFailed
		}
	case models.ActionDelegate:
		if in.DelegateTo == "" {
			return ErrValidationFailed
		}
		if !canDelegate(ss, actual) {
			return ErrNotAuthorized
		}
	case models.ActionReturn, models.ActionEscalate, models.ActionRequestInfo:
		// no extra preconditions
	default:
		return ErrValidationFailed
	}

	recordAction(req, ss, models.ApprovalAction{
		ID:         uuid.NewString(),
		StepID:     ss.StepID,
		StepOrder:  req.CurrentStep,
		ActorID:    in.ActorID,
		OnBehalfOf: onBehalfOf(in.ActorID, actual),
		Action:     in.Action,
		Comments:   in.Comments,
		DelegateTo: in.DelegateTo,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		Timestamp:  now,
	})
	req.UpdatedAt = now

	switch in.Action {
	case models.ActionApprove:
		ss.ReceivedApprovals++
		removeFirst(&ss.PendingApprovers, actual)
		if IsStepComplete(ss.Type, ss.RequiredApprovals, ss.ReceivedApprovals) {
			ss.State = models.StepStateApproved
			ss.CompletedAt = &now
			return advanceFrom(ctx, req, wf, req.CurrentStep, resolver, now)
		}
	case models.ActionReject:
		// One rejection is terminal for the whole request, at any step type.
		ss.ReceivedRejections++
		ss.State = models.StepStateRejected
		ss.CompletedAt = &now
		req.Status = models.RequestStatusRejected
		req.CompletedAt = &now
	case models.ActionDelegate:
		replaceFirst(ss.PendingApprovers, actual, in.DelegateTo)
	case models.ActionReturn:
		resetToDraft(req)
	case models.ActionEscalate, models.ActionRequestInfo:
		// audit trail only
	}
	return nil
}

// Cancel terminates a request from any non-terminal status.
func Cancel(req *models.ApprovalRequest, now time.Time) error {
	if req.Status.IsTerminal() {
		return ErrInvalidState
	}
	req.Status = models.RequestStatusCancelled
	req.CompletedAt = &now
	req.UpdatedAt = now
	return nil
}

// activateStep starts step idx: stamps started_at, resolves the approver
// descriptors to concrete pending user ids and applies the workflow's
// skip-self policy. A step whose conditions don't apply, or whose pending
// set resolves empty, is skipped and the request advances immediately.
func activateStep(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow, idx int, resolver ApproverResolver, now time.Time) error {
	ss := &req.StepStatuses[idx]
	req.CurrentStep = idx
	req.Status = models.RequestStatusInProgress

	if step := workflowStep(wf, ss.StepID); step != nil && len(step.Conditions) > 0 && req.Context != nil {
		ok, err := condition.Evaluate(step.Conditions, req.Context)
		if err != nil {
			return err
		}
		if !ok {
			return skipStep(ctx, req, wf, idx, resolver, now)
		}
	}

	ss.State = models.StepStateInProgress
	ss.StartedAt = &now

	pending := make([]string, 0, len(ss.Approvers))
	for _, a := range ss.Approvers {
		ids := []string{a.ApproverID}
		if resolver != nil {
			resolved, err := resolver.Resolve(ctx, req, a)
			if err != nil {
				return err
			}
			ids = resolved
		}
		for _, id := range ids {
			if id != "" && !slices.Contains(pending, id) {
				pending = append(pending, id)
			}
		}
	}
	if wf.SkipSelfApprovalSteps {
		pending = slices.DeleteFunc(pending, func(id string) bool { return id == req.RequesterID })
	}

	if len(pending) == 0 {
		return skipStep(ctx, req, wf, idx, resolver, now)
	}
	ss.PendingApprovers = pending
	return nil
}

func skipStep(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow, idx int, resolver ApproverResolver, now time.Time) error {
	ss := &req.StepStatuses[idx]
	ss.State = models.StepStateSkipped
	ss.CompletedAt = &now
	ss.PendingApprovers = nil
	return advanceFrom(ctx, req, wf, idx, resolver, now)
}

// advanceFrom activates the step after idx, or finalizes the request as
// approved when idx was the last one. current_step equals len(step_statuses)
// exactly when the request is approved.
func advanceFrom(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow, idx int, resolver ApproverResolver, now time.Time) error {
	if idx+1 < len(req.StepStatuses) {
		return activateStep(ctx, req, wf, idx+1, resolver, now)
	}
	req.Status = models.RequestStatusApproved
	req.CompletedAt = &now
	req.CurrentStep = len(req.StepStatuses)
	return nil
}

// resetToDraft is the RETURN action: a hard restart to the state right after
// creation. Only the action history (and the host-managed version) survives.
func resetToDraft(req *models.ApprovalRequest) {
	req.Status = models.RequestStatusDraft
	req.CurrentStep = 0
	req.SubmittedAt = nil
	req.CompletedAt = nil
	for i := range req.StepStatuses {
		ss := &req.StepStatuses[i]
		ss.State = models.StepStatePending
		ss.ReceivedApprovals = 0
		ss.ReceivedRejections = 0
		ss.StartedAt = nil
		ss.CompletedAt = nil
		ss.PendingApprovers = literalApproverIDs(ss.Approvers)
	}
}

// checkSequenceOrder rejects an approval when an earlier required approver
// of a sequence step has not acted yet. Identities outside the snapshot
// (delegates, escalated approvers) are unconstrained.
func checkSequenceOrder(ss *models.StepStatus, actual string) error {
	pos := slices.IndexFunc(ss.Approvers, func(a models.Approver) bool { return a.ApproverID == actual })
	if pos < 0 {
		return nil
	}
	for _, earlier := range ss.Approvers[:pos] {
		if earlier.Required && slices.Contains(ss.PendingApprovers, earlier.ApproverID) {
			return ErrValidationFailed
		}
	}
	return nil
}

func canDelegate(ss *models.StepStatus, actual string) bool {
	for _, a := range ss.Approvers {
		if a.ApproverID == actual {
			return a.CanDelegate
		}
	}
	// Not part of the snapshot (already a delegate or escalated in): allowed.
	return true
}

func workflowStep(wf *models.Workflow, stepID string) *models.WorkflowStep {
	if wf == nil {
		return nil
	}
	for i := range wf.Steps {
		if wf.Steps[i].ID == stepID {
			return &wf.Steps[i]
		}
	}
	return nil
}

func recordAction(req *models.ApprovalRequest, ss *models.StepStatus, act models.ApprovalAction) {
	req.Actions = append(req.Actions, act)
	ss.Actions = append(ss.Actions, act)
}

func literalApproverIDs(approvers []models.Approver) []string {
	ids := make([]string, 0, len(approvers))
	for _, a := range approvers {
		if a.ApproverID != "" && !slices.Contains(ids, a.ApproverID) {
			ids = append(ids, a.ApproverID)
		}
	}
	return ids
}

func removeFirst(list *[]string, id string) {
	if i := slices.Index(*list, id); i >= 0 {
		*list = slices.Delete(*list, i, i+1)
	}
}

func replaceFirst(list []string, from, to string) {
	if i := slices.Index(list, from); i >= 0 {
		list[i] = to
	}
}

func onBehalfOf(actor, actual string) string {
	if actor == actual {
		return ""
	}
	return actual
}
