package workflow

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"
	"go-approvals/internal/features/audit"
	"go-approvals/pkg/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, wf *models.Workflow) error
	UpdateWorkflow(ctx context.Context, id string, wf *models.Workflow) error
	GetWorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	GetWorkflowByCode(ctx context.Context, code string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.Workflow, int64, error)
	ChangeStatus(ctx context.Context, id string, status models.WorkflowStatus) error
	DeleteWorkflow(ctx context.Context, id string) error

	// MatchWorkflow previews which active workflow a request with the given
	// attributes would land on.
	MatchWorkflow(ctx context.Context, approvalType string, amount *float64, reqCtx map[string]interface{}) (*models.Workflow, error)
}

type WorkflowServiceImpl struct {
	Repo         WorkflowRepository
	AuditService audit.AuditService
}

func NewWorkflowService(repo WorkflowRepository, auditService audit.AuditService) WorkflowService {
	return &WorkflowServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

var validStepTypes = map[models.StepType]bool{
	models.StepTypeSingle:   true,
	models.StepTypeAny:      true,
	models.StepTypeAll:      true,
	models.StepTypeMajority: true,
	models.StepTypeSequence: true,
}

var validApproverTypes = map[models.ApproverType]bool{
	models.ApproverTypeUser:           true,
	models.ApproverTypeRole:           true,
	models.ApproverTypeManager:        true,
	models.ApproverTypeDepartmentHead: true,
	models.ApproverTypeDynamic:        true,
}

var validOperators = map[models.ConditionOperator]bool{
	models.OperatorEquals:         true,
	models.OperatorNotEquals:      true,
	models.OperatorGreaterThan:    true,
	models.OperatorLessThan:       true,
	models.OperatorGreaterOrEqual: true,
	models.OperatorLessOrEqual:    true,
	models.OperatorContains:       true,
	models.OperatorIn:             true,
	models.OperatorBetween:        true,
}

func validateConditions(conds []models.Condition) error {
	for _, c := range conds {
		if c.Field == "" {
			return fmt.Errorf("%w: condition field is required", engine.ErrValidationFailed)
		}
		if !validOperators[c.Operator] {
			return fmt.Errorf("%w: unknown condition operator %q", engine.ErrValidationFailed, c.Operator)
		}
		if c.Operator == models.OperatorBetween && c.ValueTo == nil {
			return fmt.Errorf("%w: between condition needs value_to", engine.ErrValidationFailed)
		}
	}
	return nil
}

func (s *WorkflowServiceImpl) validate(wf *models.Workflow) error {
	if wf.Name == "" {
		return fmt.Errorf("%w: name is required", engine.ErrValidationFailed)
	}
	if wf.ApprovalType == "" {
		return fmt.Errorf("%w: approval_type is required", engine.ErrValidationFailed)
	}
	if wf.MinAmount != nil && wf.MaxAmount != nil && *wf.MinAmount > *wf.MaxAmount {
		return fmt.Errorf("%w: min_amount exceeds max_amount", engine.ErrValidationFailed)
	}
	if err := validateConditions(wf.Conditions); err != nil {
		return err
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("%w: step %d has no name", engine.ErrValidationFailed, i)
		}
		if !validStepTypes[step.Type] {
			return fmt.Errorf("%w: step %d has unknown type %q", engine.ErrValidationFailed, i, step.Type)
		}
		if len(step.Approvers) == 0 {
			return fmt.Errorf("%w: step %d has no approvers", engine.ErrValidationFailed, i)
		}
		for j, a := range step.Approvers {
			if !validApproverTypes[a.Type] {
				return fmt.Errorf("%w: step %d approver %d has unknown type %q", engine.ErrValidationFailed, i, j, a.Type)
			}
			if a.Type == models.ApproverTypeDynamic && a.Script == "" {
				return fmt.Errorf("%w: step %d approver %d is dynamic but has no script", engine.ErrValidationFailed, i, j)
			}
			if (a.Type == models.ApproverTypeUser || a.Type == models.ApproverTypeRole) && a.ApproverID == "" {
				return fmt.Errorf("%w: step %d approver %d has no approver_id", engine.ErrValidationFailed, i, j)
			}
		}
		if err := validateConditions(step.Conditions); err != nil {
			return err
		}
		if step.AutoApproveOnTimeout && step.AutoRejectOnTimeout {
			return fmt.Errorf("%w: step %d cannot both auto-approve and auto-reject on timeout", engine.ErrValidationFailed, i)
		}

		// Orders follow slice position; step ids are stamped once and survive
		// later edits so request snapshots keep pointing at them.
		step.Order = i
		if step.ID == "" {
			step.ID = uuid.NewString()
		}
	}

	return nil
}

func (s *WorkflowServiceImpl) CreateWorkflow(ctx context.Context, wf *models.Workflow) error {
	wf.Code = utils.NormalizeCode(wf.Code)
	if wf.Code == "" {
		wf.Code = utils.NormalizeCode(wf.Name)
	}
	if wf.Code == "" {
		return fmt.Errorf("%w: code is required", engine.ErrValidationFailed)
	}

	if err := s.validate(wf); err != nil {
		return err
	}

	existing, err := s.Repo.GetByCode(ctx, wf.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: workflow code %s already exists", engine.ErrConflict, wf.Code)
	}

	if wf.ID.IsZero() {
		wf.ID = primitive.NewObjectID()
	}
	wf.Status = models.WorkflowStatusDraft
	wf.Version = 1
	wf.CreatedAt = time.Now()
	wf.UpdatedAt = time.Now()

	if err := s.Repo.Create(ctx, wf); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"code": {New: wf.Code},
		"name": {New: wf.Name},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "workflow", wf.ID.Hex(), changes)

	return nil
}

func (s *WorkflowServiceImpl) UpdateWorkflow(ctx context.Context, id string, wf *models.Workflow) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return engine.ErrNotFound
	}
	// Steps are frozen while requests can be running against them.
	if existing.Status == models.WorkflowStatusActive {
		return fmt.Errorf("%w: deactivate the workflow before editing", engine.ErrInvalidState)
	}
	if existing.Status == models.WorkflowStatusArchived {
		return fmt.Errorf("%w: archived workflows are read-only", engine.ErrInvalidState)
	}

	if err := s.validate(wf); err != nil {
		return err
	}

	if err := s.Repo.Update(ctx, id, wf); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"updated": {New: true},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "workflow", id, changes)

	return nil
}

var allowedTransitions = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.WorkflowStatusDraft:    {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusActive:   {models.WorkflowStatusInactive, models.WorkflowStatusArchived},
	models.WorkflowStatusInactive: {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusArchived: {},
}

func (s *WorkflowServiceImpl) ChangeStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return engine.ErrNotFound
	}

	allowed := false
	for _, next := range allowedTransitions[existing.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: cannot move workflow from %s to %s", engine.ErrInvalidState, existing.Status, status)
	}

	// A workflow with no steps would approve every request on submit.
	if status == models.WorkflowStatusActive && len(existing.Steps) == 0 {
		return fmt.Errorf("%w: cannot activate a workflow with no steps", engine.ErrValidationFailed)
	}

	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"status": {Old: string(existing.Status), New: string(status)},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "workflow", id, changes)

	return nil
}

func (s *WorkflowServiceImpl) DeleteWorkflow(ctx context.Context, id string) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return engine.ErrNotFound
	}
	if existing.Status == models.WorkflowStatusActive {
		return fmt.Errorf("%w: deactivate the workflow before deleting", engine.ErrInvalidState)
	}

	if err := s.Repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"deleted": {New: true},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelete, "workflow", id, changes)

	return nil
}

func (s *WorkflowServiceImpl) GetWorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) GetWorkflowByCode(ctx context.Context, code string) (*models.Workflow, error) {
	return s.Repo.GetByCode(ctx, utils.NormalizeCode(code))
}

func (s *WorkflowServiceImpl) ListWorkflows(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.Workflow, int64, error) {
	if filter == nil {
		filter = make(map[string]interface{})
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, filter, limit, offset)
}

func (s *WorkflowServiceImpl) MatchWorkflow(ctx context.Context, approvalType string, amount *float64, reqCtx map[string]interface{}) (*models.Workflow, error) {
	candidates, err := s.Repo.ListActiveByType(ctx, approvalType)
	if err != nil {
		return nil, err
	}
	return engine.FindMatching(candidates, approvalType, amount, reqCtx)
}
