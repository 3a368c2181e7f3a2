package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"
)

type fakeRepo struct {
	byID map[string]*models.Workflow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*models.Workflow)}
}

func (r *fakeRepo) Create(_ context.Context, wf *models.Workflow) error {
	cp := *wf
	r.byID[wf.ID.Hex()] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	wf, ok := r.byID[id]
	if !ok || wf.Deleted {
		return nil, nil
	}
	cp := *wf
	return &cp, nil
}

func (r *fakeRepo) GetByCode(_ context.Context, code string) (*models.Workflow, error) {
	for _, wf := range r.byID {
		if wf.Code == code && !wf.Deleted {
			cp := *wf
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) List(_ context.Context, _ map[string]interface{}, _, _ int64) ([]models.Workflow, int64, error) {
	var out []models.Workflow
	for _, wf := range r.byID {
		if !wf.Deleted {
			out = append(out, *wf)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) ListActiveByType(_ context.Context, approvalType string) ([]models.Workflow, error) {
	var out []models.Workflow
	for _, wf := range r.byID {
		if !wf.Deleted && wf.Status == models.WorkflowStatusActive && wf.ApprovalType == approvalType {
			out = append(out, *wf)
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id string, wf *models.Workflow) error {
	stored := r.byID[id]
	stored.Name = wf.Name
	stored.Description = wf.Description
	stored.Steps = wf.Steps
	stored.Version++
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status models.WorkflowStatus) error {
	r.byID[id].Status = status
	return nil
}

func (r *fakeRepo) SoftDelete(_ context.Context, id string) error {
	r.byID[id].Deleted = true
	return nil
}

type nopAudit struct{}

func (nopAudit) LogChange(context.Context, models.AuditAction, string, string, map[string]models.Change) error {
	return nil
}

func (nopAudit) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]models.AuditLog, error) {
	return nil, nil
}

func newService(repo WorkflowRepository) WorkflowService {
	return NewWorkflowService(repo, nopAudit{})
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:         "Expense Approval",
		ApprovalType: "expense",
		Steps: []models.WorkflowStep{
			{
				Name: "Manager",
				Type: models.StepTypeSingle,
				Approvers: []models.Approver{
					{Type: models.ApproverTypeManager, Required: true},
				},
			},
		},
	}
}

func TestCreateWorkflowDerivesCodeFromName(t *testing.T) {
	svc := newService(newFakeRepo())

	wf := validWorkflow()
	require.NoError(t, svc.CreateWorkflow(context.Background(), wf))

	assert.Equal(t, "EXPENSE_APPROVAL", wf.Code)
	assert.Equal(t, models.WorkflowStatusDraft, wf.Status)
	assert.Equal(t, 1, wf.Version)
	assert.False(t, wf.ID.IsZero())
}

func TestCreateWorkflowStampsStepOrderAndIDs(t *testing.T) {
	svc := newService(newFakeRepo())

	wf := validWorkflow()
	wf.Steps = append(wf.Steps, models.WorkflowStep{
		Name: "Finance",
		Type: models.StepTypeAny,
		Approvers: []models.Approver{
			{Type: models.ApproverTypeRole, ApproverID: "finance"},
		},
	})
	require.NoError(t, svc.CreateWorkflow(context.Background(), wf))

	assert.Equal(t, 0, wf.Steps[0].Order)
	assert.Equal(t, 1, wf.Steps[1].Order)
	assert.NotEmpty(t, wf.Steps[0].ID)
	assert.NotEmpty(t, wf.Steps[1].ID)
	assert.NotEqual(t, wf.Steps[0].ID, wf.Steps[1].ID)
}

func TestCreateWorkflowRejectsDuplicateCode(t *testing.T) {
	svc := newService(newFakeRepo())

	require.NoError(t, svc.CreateWorkflow(context.Background(), validWorkflow()))

	err := svc.CreateWorkflow(context.Background(), validWorkflow())
	assert.ErrorIs(t, err, engine.ErrConflict)
}

func TestCreateWorkflowValidation(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	noName := validWorkflow()
	noName.Name = ""
	noName.Code = "X"
	assert.ErrorIs(t, svc.CreateWorkflow(ctx, noName), engine.ErrValidationFailed)

	dynamicNoScript := validWorkflow()
	dynamicNoScript.Steps[0].Approvers = []models.Approver{
		{Type: models.ApproverTypeDynamic},
	}
	assert.ErrorIs(t, svc.CreateWorkflow(ctx, dynamicNoScript), engine.ErrValidationFailed)

	bothTimeouts := validWorkflow()
	bothTimeouts.Steps[0].AutoApproveOnTimeout = true
	bothTimeouts.Steps[0].AutoRejectOnTimeout = true
	assert.ErrorIs(t, svc.CreateWorkflow(ctx, bothTimeouts), engine.ErrValidationFailed)

	badBounds := validWorkflow()
	lo, hi := 500.0, 100.0
	badBounds.MinAmount = &lo
	badBounds.MaxAmount = &hi
	assert.ErrorIs(t, svc.CreateWorkflow(ctx, badBounds), engine.ErrValidationFailed)

	betweenNoUpper := validWorkflow()
	betweenNoUpper.Conditions = []models.Condition{
		{Field: "amount", Operator: models.OperatorBetween, Value: 1.0},
	}
	assert.ErrorIs(t, svc.CreateWorkflow(ctx, betweenNoUpper), engine.ErrValidationFailed)
}

func TestChangeStatusTransitions(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	wf := validWorkflow()
	require.NoError(t, svc.CreateWorkflow(ctx, wf))
	id := wf.ID.Hex()

	require.NoError(t, svc.ChangeStatus(ctx, id, models.WorkflowStatusActive))

	// No path back to draft once activated.
	assert.ErrorIs(t, svc.ChangeStatus(ctx, id, models.WorkflowStatusDraft), engine.ErrInvalidState)

	require.NoError(t, svc.ChangeStatus(ctx, id, models.WorkflowStatusInactive))
	require.NoError(t, svc.ChangeStatus(ctx, id, models.WorkflowStatusActive))
	require.NoError(t, svc.ChangeStatus(ctx, id, models.WorkflowStatusArchived))

	assert.ErrorIs(t, svc.ChangeStatus(ctx, id, models.WorkflowStatusActive), engine.ErrInvalidState)
}

func TestChangeStatusRefusesActivationWithoutSteps(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	wf := validWorkflow()
	wf.Steps = nil
	wf.Code = "EMPTY"
	require.NoError(t, svc.CreateWorkflow(ctx, wf))

	err := svc.ChangeStatus(ctx, wf.ID.Hex(), models.WorkflowStatusActive)
	assert.ErrorIs(t, err, engine.ErrValidationFailed)
}

func TestUpdateWorkflowBlockedWhileActive(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	wf := validWorkflow()
	require.NoError(t, svc.CreateWorkflow(ctx, wf))
	require.NoError(t, svc.ChangeStatus(ctx, wf.ID.Hex(), models.WorkflowStatusActive))

	err := svc.UpdateWorkflow(ctx, wf.ID.Hex(), validWorkflow())
	assert.ErrorIs(t, err, engine.ErrInvalidState)
}

func TestDeleteWorkflow(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	wf := validWorkflow()
	require.NoError(t, svc.CreateWorkflow(ctx, wf))
	require.NoError(t, svc.ChangeStatus(ctx, wf.ID.Hex(), models.WorkflowStatusActive))

	assert.ErrorIs(t, svc.DeleteWorkflow(ctx, wf.ID.Hex()), engine.ErrInvalidState)

	require.NoError(t, svc.ChangeStatus(ctx, wf.ID.Hex(), models.WorkflowStatusInactive))
	require.NoError(t, svc.DeleteWorkflow(ctx, wf.ID.Hex()))

	got, err := svc.GetWorkflowByID(ctx, wf.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchWorkflowPrefersHigherPriority(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	low := validWorkflow()
	low.Code = "LOW"
	low.Priority = 1
	require.NoError(t, svc.CreateWorkflow(ctx, low))
	require.NoError(t, svc.ChangeStatus(ctx, low.ID.Hex(), models.WorkflowStatusActive))

	high := validWorkflow()
	high.Code = "HIGH"
	high.Priority = 5
	require.NoError(t, svc.CreateWorkflow(ctx, high))
	require.NoError(t, svc.ChangeStatus(ctx, high.ID.Hex(), models.WorkflowStatusActive))

	got, err := svc.MatchWorkflow(ctx, "expense", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "HIGH", got.Code)
}
