package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-approvals/internal/common/models"
)

var t0 = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

func userApprover(id string, required bool) models.Approver {
	return models.Approver{Type: models.ApproverTypeUser, ApproverID: id, Required: required, CanDelegate: true}
}

func workflowStepOf(id string, order int, typ models.StepType, approvers ...models.Approver) models.WorkflowStep {
	return models.WorkflowStep{ID: id, Name: "Step " + id, Order: order, Type: typ, Approvers: approvers}
}

func activeWorkflow(steps ...models.WorkflowStep) *models.Workflow {
	return &models.Workflow{
		Code:         "PO-STANDARD",
		Name:         "Standard PO",
		ApprovalType: "purchase_order",
		Status:       models.WorkflowStatusActive,
		Steps:        steps,
		CreatedAt:    t0,
	}
}

func submitted(t *testing.T, wf *models.Workflow, requester string) *models.ApprovalRequest {
	t.Helper()
	req, err := NewRequest(wf, RequestInput{RequesterID: requester, Title: "Laptops"}, t0)
	require.NoError(t, err)
	require.NoError(t, Submit(context.Background(), req, wf, nil, t0))
	return req
}

func TestValidRequestNumber(t *testing.T) {
	assert.True(t, ValidRequestNumber("APR-2026-000042"))
	assert.False(t, ValidRequestNumber("APR-2026-42"))
	assert.False(t, ValidRequestNumber("apr-2026-000042"))
	assert.False(t, ValidRequestNumber("APR-26-000042"))
	assert.False(t, ValidRequestNumber("APR-2026-0000420"))
}

func TestNewRequestRequiresActiveWorkflow(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	wf.Status = models.WorkflowStatusDraft

	_, err := NewRequest(wf, RequestInput{RequesterID: "req1"}, t0)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = NewRequest(nil, RequestInput{RequesterID: "req1"}, t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSingleStepApproveToApproved(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	req := submitted(t, wf, "req1")

	assert.Equal(t, models.RequestStatusInProgress, req.Status)
	assert.Equal(t, 0, req.CurrentStep)
	assert.Equal(t, []string{"u1"}, req.StepStatuses[0].PendingApprovers)
	require.NotNil(t, req.StepStatuses[0].StartedAt)

	err := TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionApprove, Comments: "ok"}, nil, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusApproved, req.Status)
	assert.Equal(t, len(req.StepStatuses), req.CurrentStep)
	assert.Equal(t, models.StepStateApproved, req.StepStatuses[0].State)
	require.NotNil(t, req.CompletedAt)
	require.Len(t, req.Actions, 1)
	assert.Equal(t, models.ActionApprove, req.Actions[0].Action)
	assert.Empty(t, req.Actions[0].OnBehalfOf)
}

func TestAllStepNeedsEveryRequiredApprover(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeAll, userApprover("u1", true), userApprover("u2", true)))
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionApprove}, nil, t0.Add(time.Hour)))
	assert.Equal(t, models.RequestStatusInProgress, req.Status)
	assert.Equal(t, models.StepStateInProgress, req.StepStatuses[0].State)
	assert.Equal(t, 1, req.StepStatuses[0].ReceivedApprovals)
	assert.Equal(t, []string{"u2"}, req.StepStatuses[0].PendingApprovers)

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u2", Action: models.ActionApprove}, nil, t0.Add(2*time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
	assert.Equal(t, 2, req.StepStatuses[0].ReceivedApprovals)
}

func TestMajorityStepCompletesAtQuorum(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeMajority,
		userApprover("u1", true), userApprover("u2", true), userApprover("u3", true)))
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	assert.Equal(t, 2, req.StepStatuses[0].RequiredApprovals)

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionApprove}, nil, t0.Add(time.Hour)))
	assert.Equal(t, models.RequestStatusInProgress, req.Status)

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u3", Action: models.ActionApprove}, nil, t0.Add(2*time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
	// u2 never acted and stays in the final pending snapshot.
	assert.Equal(t, []string{"u2"}, req.StepStatuses[0].PendingApprovers)
}

func TestRejectWithoutRequiredCommentsFails(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	wf.RequireCommentsOnReject = true
	req := submitted(t, wf, "req1")

	err := TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionReject, Comments: "   "}, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Failed precondition must leave the request untouched.
	assert.Equal(t, models.RequestStatusInProgress, req.Status)
	assert.Equal(t, 0, req.StepStatuses[0].ReceivedRejections)
	assert.Empty(t, req.Actions)
}

func TestRejectIsTerminal(t *testing.T) {
	wf := activeWorkflow(
		workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)),
		workflowStepOf("s2", 1, models.StepTypeSingle, userApprover("u2", true)),
	)
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionReject, Comments: "over budget"}, nil, t0.Add(time.Hour)))

	assert.Equal(t, models.RequestStatusRejected, req.Status)
	assert.Equal(t, models.StepStateRejected, req.StepStatuses[0].State)
	assert.Equal(t, models.StepStatePending, req.StepStatuses[1].State)
	require.NotNil(t, req.CompletedAt)

	// No further actions accepted on a terminal request.
	err := TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u2", Action: models.ActionApprove}, nil, t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDelegateActionReplacesPendingApprover(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionDelegate, DelegateTo: "u9"}, nil, t0.Add(time.Hour)))
	assert.Equal(t, []string{"u9"}, req.StepStatuses[0].PendingApprovers)
	assert.Equal(t, models.RequestStatusInProgress, req.Status)

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u9", Action: models.ActionApprove}, nil, t0.Add(2*time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
}

func TestDelegateActionValidation(t *testing.T) {
	noDelegate := userApprover("u1", true)
	noDelegate.CanDelegate = false
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, noDelegate))
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	err := TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionDelegate}, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrValidationFailed)

	err = TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionDelegate, DelegateTo: "u9"}, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestStandingDelegationActsOnBehalfOfDelegator(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeAll, userApprover("u1", true), userApprover("u3", true)))
	req := submitted(t, wf, "req1")

	delegations := []models.Delegation{{
		DelegatorID: "u1",
		DelegateID:  "u2",
		StartDate:   t0.AddDate(0, 0, -1),
		EndDate:     t0.AddDate(0, 0, 7),
		Active:      true,
		CreatedAt:   t0.AddDate(0, 0, -1),
	}}

	err := TakeAction(context.Background(), req, wf, delegations, ActionInput{ActorID: "u2", Action: models.ActionApprove}, nil, t0.Add(time.Hour))
	require.NoError(t, err)

	// It is the delegator, not the delegate, who is consumed from pending.
	assert.Equal(t, []string{"u3"}, req.StepStatuses[0].PendingApprovers)
	require.Len(t, req.Actions, 1)
	assert.Equal(t, "u2", req.Actions[0].ActorID)
	assert.Equal(t, "u1", req.Actions[0].OnBehalfOf)
}

func TestUnauthorizedActor(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	req := submitted(t, wf, "req1")

	err := TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "stranger", Action: models.ActionApprove}, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestSelfApprovalPolicy(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("req1", true)))
	req := submitted(t, wf, "req1")

	err := TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "req1", Action: models.ActionApprove}, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotAuthorized)

	wf.AllowSelfApproval = true
	req = submitted(t, wf, "req1")
	require.NoError(t, TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "req1", Action: models.ActionApprove}, nil, t0.Add(time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
}

func TestSkipSelfApprovalSteps(t *testing.T) {
	wf := activeWorkflow(
		workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("req1", true)),
		workflowStepOf("s2", 1, models.StepTypeSingle, userApprover("u2", true)),
	)
	wf.SkipSelfApprovalSteps = true
	req := submitted(t, wf, "req1")

	// Step zero only had the requester; it is skipped, not failed.
	assert.Equal(t, models.StepStateSkipped, req.StepStatuses[0].State)
	assert.Equal(t, 1, req.CurrentStep)
	assert.Equal(t, models.StepStateInProgress, req.StepStatuses[1].State)
	assert.Equal(t, []string{"u2"}, req.StepStatuses[1].PendingApprovers)
}

func TestStepConditionsSkip(t *testing.T) {
	step := workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true))
	step.Conditions = []models.Condition{{Field: "amount", Operator: models.OperatorGreaterThan, Value: 10000}}
	wf := activeWorkflow(step, workflowStepOf("s2", 1, models.StepTypeSingle, userApprover("u2", true)))

	req, err := NewRequest(wf, RequestInput{RequesterID: "req1", Context: map[string]interface{}{"amount": 500}}, t0)
	require.NoError(t, err)
	require.NoError(t, Submit(context.Background(), req, wf, nil, t0))

	assert.Equal(t, models.StepStateSkipped, req.StepStatuses[0].State)
	assert.Nil(t, req.StepStatuses[0].PendingApprovers)
	assert.Equal(t, 1, req.CurrentStep)
}

func TestAllStepsSkippedApprovesRequest(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("req1", true)))
	wf.SkipSelfApprovalSteps = true
	req := submitted(t, wf, "req1")

	assert.Equal(t, models.RequestStatusApproved, req.Status)
	assert.Equal(t, models.StepStateSkipped, req.StepStatuses[0].State)
}

func TestSequenceOrderEnforced(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSequence, userApprover("u1", true), userApprover("u2", true)))
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	err := TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u2", Action: models.ActionApprove}, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, 0, req.StepStatuses[0].ReceivedApprovals)

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionApprove}, nil, t0.Add(time.Hour)))
	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u2", Action: models.ActionApprove}, nil, t0.Add(2*time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
}

func TestRequestInfoIsAuditOnly(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	req := submitted(t, wf, "req1")

	require.NoError(t, TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionRequestInfo, Comments: "need the quote"}, nil, t0.Add(time.Hour)))

	assert.Equal(t, models.RequestStatusInProgress, req.Status)
	assert.Equal(t, []string{"u1"}, req.StepStatuses[0].PendingApprovers)
	require.Len(t, req.Actions, 1)
	assert.Equal(t, models.ActionRequestInfo, req.Actions[0].Action)
}

func TestReturnResetsToDraftKeepingHistory(t *testing.T) {
	wf := activeWorkflow(
		workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)),
		workflowStepOf("s2", 1, models.StepTypeSingle, userApprover("u2", true)),
	)
	req := submitted(t, wf, "req1")
	ctx := context.Background()

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionApprove}, nil, t0.Add(time.Hour)))
	assert.Equal(t, 1, req.CurrentStep)

	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u2", Action: models.ActionReturn, Comments: "wrong cost center"}, nil, t0.Add(2*time.Hour)))

	assert.Equal(t, models.RequestStatusDraft, req.Status)
	assert.Equal(t, 0, req.CurrentStep)
	assert.Nil(t, req.SubmittedAt)
	assert.Nil(t, req.CompletedAt)
	for i, ss := range req.StepStatuses {
		assert.Equal(t, models.StepStatePending, ss.State, "step %d", i)
		assert.Zero(t, ss.ReceivedApprovals, "step %d", i)
		assert.Nil(t, ss.StartedAt, "step %d", i)
	}
	assert.Equal(t, []string{"u1"}, req.StepStatuses[0].PendingApprovers)
	// The full action history survives the reset.
	assert.Len(t, req.Actions, 2)

	// The returned request can go around again.
	require.NoError(t, Submit(ctx, req, wf, nil, t0.Add(3*time.Hour)))
	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u1", Action: models.ActionApprove}, nil, t0.Add(4*time.Hour)))
	require.NoError(t, TakeAction(ctx, req, wf, nil, ActionInput{ActorID: "u2", Action: models.ActionApprove}, nil, t0.Add(5*time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
	assert.Len(t, req.Actions, 4)
}

func TestSubmitRequiresDraft(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	req := submitted(t, wf, "req1")

	assert.ErrorIs(t, Submit(context.Background(), req, wf, nil, t0.Add(time.Hour)), ErrInvalidState)
}

func TestCancel(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeSingle, userApprover("u1", true)))
	req := submitted(t, wf, "req1")

	require.NoError(t, Cancel(req, t0.Add(time.Hour)))
	assert.Equal(t, models.RequestStatusCancelled, req.Status)
	require.NotNil(t, req.CompletedAt)

	assert.ErrorIs(t, Cancel(req, t0.Add(2*time.Hour)), ErrInvalidState)
}

// stubResolver maps approver descriptors to fixed user-id sets, keyed by
// approver type then id.
type stubResolver struct {
	byType map[models.ApproverType][]string
	err    error
}

func (s *stubResolver) Resolve(_ context.Context, _ *models.ApprovalRequest, a models.Approver) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ids, ok := s.byType[a.Type]; ok {
		return ids, nil
	}
	return []string{a.ApproverID}, nil
}

func TestRoleApproversResolveAtActivation(t *testing.T) {
	wf := activeWorkflow(workflowStepOf("s1", 0, models.StepTypeAny,
		models.Approver{Type: models.ApproverTypeRole, ApproverID: "finance-manager", Required: true}))
	req, err := NewRequest(wf, RequestInput{RequesterID: "req1"}, t0)
	require.NoError(t, err)

	resolver := &stubResolver{byType: map[models.ApproverType][]string{
		models.ApproverTypeRole: {"u5", "u6", "u5"},
	}}
	require.NoError(t, Submit(context.Background(), req, wf, resolver, t0))

	// Deduplicated concrete ids, resolved once at activation.
	assert.Equal(t, []string{"u5", "u6"}, req.StepStatuses[0].PendingApprovers)

	require.NoError(t, TakeAction(context.Background(), req, wf, nil, ActionInput{ActorID: "u6", Action: models.ActionApprove}, resolver, t0.Add(time.Hour)))
	assert.Equal(t, models.RequestStatusApproved, req.Status)
}
