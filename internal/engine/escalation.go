package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"go-approvals/internal/common/models"
)

// SystemActorID is the actor recorded on engine-initiated actions
// (escalations and step timeouts).
const SystemActorID = "system"

// Escalate applies the current step's escalation rules and timeout policy to
// one in-progress request. For each rule whose trigger has elapsed, the
// escalated approver is appended to the pending set (once per
// step-activation) and, with auto_approve set, approves immediately, which
// cascades through the normal lifecycle. A step past its timeout_hours is
// auto-approved or auto-rejected per the step's flags as a system action.
//
// Returns whether the request changed. Re-running with no intervening action
// changes nothing: a rule whose escalatee is already pending, or has already
// acted since the step started, is skipped.
func Escalate(ctx context.Context, req *models.ApprovalRequest, wf *models.Workflow, resolver ApproverResolver, now time.Time) (bool, error) {
	if req.Status != models.RequestStatusInProgress {
		return false, nil
	}
	if req.CurrentStep < 0 || req.CurrentStep >= len(req.StepStatuses) {
		return false, nil
	}
	ss := &req.StepStatuses[req.CurrentStep]
	if ss.State != models.StepStateInProgress || ss.StartedAt == nil {
		return false, nil
	}
	step := workflowStep(wf, ss.StepID)
	if step == nil {
		return false, nil
	}

	startedAt := *ss.StartedAt
	elapsed := now.Sub(startedAt).Hours()
	changed := false

	for _, rule := range step.EscalationRules {
		if elapsed < float64(rule.TriggerHours) {
			continue
		}
		if slices.Contains(ss.PendingApprovers, rule.EscalateToID) {
			continue
		}
		if hasActedSince(ss, rule.EscalateToID, startedAt) {
			continue
		}

		ss.PendingApprovers = append(ss.PendingApprovers, rule.EscalateToID)
		recordAction(req, ss, models.ApprovalAction{
			ID:         uuid.NewString(),
			StepID:     ss.StepID,
			StepOrder:  req.CurrentStep,
			ActorID:    SystemActorID,
			Action:     models.ActionEscalate,
			Comments:   fmt.Sprintf("Escalated after %dh", rule.TriggerHours),
			DelegateTo: rule.EscalateToID,
			Timestamp:  now,
		})
		req.UpdatedAt = now
		changed = true

		if rule.AutoApprove {
			err := TakeAction(ctx, req, wf, nil, ActionInput{
				ActorID:  rule.EscalateToID,
				Action:   models.ActionApprove,
				Comments: "Auto-approval via escalation",
			}, resolver, now)
			if err != nil {
				return changed, err
			}
		}
		if ss.State != models.StepStateInProgress {
			return changed, nil
		}
	}

	if step.TimeoutHours > 0 && elapsed >= float64(step.TimeoutHours) {
		switch {
		case step.AutoRejectOnTimeout:
			recordAction(req, ss, timeoutAction(ss, req.CurrentStep, models.ActionReject, now))
			ss.State = models.StepStateRejected
			ss.CompletedAt = &now
			req.Status = models.RequestStatusRejected
			req.CompletedAt = &now
			req.UpdatedAt = now
			return true, nil
		case step.AutoApproveOnTimeout:
			recordAction(req, ss, timeoutAction(ss, req.CurrentStep, models.ActionApprove, now))
			ss.State = models.StepStateApproved
			ss.CompletedAt = &now
			req.UpdatedAt = now
			return true, advanceFrom(ctx, req, wf, req.CurrentStep, resolver, now)
		}
	}

	return changed, nil
}

func timeoutAction(ss *models.StepStatus, stepOrder int, action models.ActionType, now time.Time) models.ApprovalAction {
	return models.ApprovalAction{
		ID:        uuid.NewString(),
		StepID:    ss.StepID,
		StepOrder: stepOrder,
		ActorID:   SystemActorID,
		Action:    action,
		Comments:  fmt.Sprintf("Step timed out after %.0fh", now.Sub(*ss.StartedAt).Hours()),
		Timestamp: now,
	}
}

func hasActedSince(ss *models.StepStatus, id string, since time.Time) bool {
	for _, act := range ss.Actions {
		if (act.ActorID == id || act.OnBehalfOf == id) && !act.Timestamp.Before(since) {
			return true
		}
	}
	return false
}
