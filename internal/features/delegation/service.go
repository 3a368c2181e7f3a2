package delegation

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/common/models"
	"go-approvals/internal/engine"
	"go-approvals/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DelegationService interface {
	CreateDelegation(ctx context.Context, d *models.Delegation) error
	UpdateDelegation(ctx context.Context, id string, d *models.Delegation) error
	RevokeDelegation(ctx context.Context, id string) error
	GetDelegationByID(ctx context.Context, id string) (*models.Delegation, error)
	ListDelegations(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.Delegation, int64, error)
	ActiveDelegationsFor(ctx context.Context, delegateID string, at time.Time) ([]models.Delegation, error)
}

type DelegationServiceImpl struct {
	Repo         DelegationRepository
	AuditService audit.AuditService
}

func NewDelegationService(repo DelegationRepository, auditService audit.AuditService) DelegationService {
	return &DelegationServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

func validateDelegation(d *models.Delegation) error {
	if d.DelegatorID == "" || d.DelegateID == "" {
		return fmt.Errorf("%w: delegator and delegate are required", engine.ErrValidationFailed)
	}
	if d.DelegatorID == d.DelegateID {
		return fmt.Errorf("%w: cannot delegate to oneself", engine.ErrValidationFailed)
	}
	if d.EndDate.Before(d.StartDate) {
		return fmt.Errorf("%w: end_date precedes start_date", engine.ErrValidationFailed)
	}
	if d.MaxAmount != nil && *d.MaxAmount < 0 {
		return fmt.Errorf("%w: max_amount cannot be negative", engine.ErrValidationFailed)
	}
	return nil
}

func (s *DelegationServiceImpl) CreateDelegation(ctx context.Context, d *models.Delegation) error {
	if err := validateDelegation(d); err != nil {
		return err
	}

	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	d.Active = true
	d.RevokedAt = nil
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()

	if err := s.Repo.Create(ctx, d); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"delegator_id": {New: d.DelegatorID},
		"delegate_id":  {New: d.DelegateID},
		"start_date":   {New: d.StartDate},
		"end_date":     {New: d.EndDate},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelegation, "delegation", d.ID.Hex(), changes)

	return nil
}

func (s *DelegationServiceImpl) UpdateDelegation(ctx context.Context, id string, d *models.Delegation) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return engine.ErrNotFound
	}
	if !existing.Active {
		return fmt.Errorf("%w: delegation is revoked", engine.ErrInvalidState)
	}

	// Parties are fixed once granted.
	d.DelegatorID = existing.DelegatorID
	d.DelegateID = existing.DelegateID
	if err := validateDelegation(d); err != nil {
		return err
	}

	if err := s.Repo.Update(ctx, id, d); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"updated": {New: true},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelegation, "delegation", id, changes)

	return nil
}

func (s *DelegationServiceImpl) RevokeDelegation(ctx context.Context, id string) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return engine.ErrNotFound
	}
	if !existing.Active {
		return fmt.Errorf("%w: delegation already revoked", engine.ErrInvalidState)
	}

	if err := s.Repo.Revoke(ctx, id, time.Now()); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"active": {Old: true, New: false},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelegation, "delegation", id, changes)

	return nil
}

func (s *DelegationServiceImpl) GetDelegationByID(ctx context.Context, id string) (*models.Delegation, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DelegationServiceImpl) ListDelegations(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.Delegation, int64, error) {
	if filter == nil {
		filter = make(map[string]interface{})
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, filter, limit, offset)
}

func (s *DelegationServiceImpl) ActiveDelegationsFor(ctx context.Context, delegateID string, at time.Time) ([]models.Delegation, error) {
	return s.Repo.ListActiveForDelegate(ctx, delegateID, at)
}
