package resolver

import (
	"context"
	"fmt"

	"go-approvals/internal/common/models"
	"go-approvals/internal/connectors"
	"go-approvals/internal/engine"
	"go-approvals/internal/features/user"

	"go.uber.org/zap"
)

// Resolver turns approver descriptors into concrete user ids. User and role
// approvers resolve against the local user collection; manager and
// department-head approvers try the local org fields first and fall back to
// the HR directory; dynamic approvers run their tengo script.
type Resolver struct {
	userRepo  user.UserRepository
	directory *connectors.DirectoryConnector
	logger    *zap.Logger
}

func NewResolver(userRepo user.UserRepository, directory *connectors.DirectoryConnector, logger *zap.Logger) engine.ApproverResolver {
	return &Resolver{
		userRepo:  userRepo,
		directory: directory,
		logger:    logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, req *models.ApprovalRequest, approver models.Approver) ([]string, error) {
	switch approver.Type {
	case models.ApproverTypeUser:
		return []string{approver.ApproverID}, nil

	case models.ApproverTypeRole:
		users, err := r.userRepo.FindByRole(ctx, approver.ApproverID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role %s: %w", approver.ApproverID, err)
		}
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID.Hex())
		}
		return ids, nil

	case models.ApproverTypeManager:
		return r.resolveManager(ctx, req)

	case models.ApproverTypeDepartmentHead:
		return r.resolveDepartmentHead(ctx, req)

	case models.ApproverTypeDynamic:
		ids, err := RunApproverScript(approver.Script, req)
		if err != nil {
			return nil, fmt.Errorf("dynamic approver script failed: %w", err)
		}
		return ids, nil

	default:
		return nil, fmt.Errorf("%w: unknown approver type %q", engine.ErrValidationFailed, approver.Type)
	}
}

func (r *Resolver) resolveManager(ctx context.Context, req *models.ApprovalRequest) ([]string, error) {
	manager, err := r.userRepo.FindManagerOf(ctx, req.RequesterID)
	if err == nil {
		return []string{manager.ID.Hex()}, nil
	}

	if r.directory != nil && r.directory.Enabled() {
		id, dirErr := r.directory.ManagerOf(ctx, req.RequesterID)
		if dirErr == nil {
			return []string{id}, nil
		}
		r.logger.Warn("directory manager lookup failed",
			zap.String("requester_id", req.RequesterID),
			zap.Error(dirErr))
	}

	return nil, fmt.Errorf("no manager found for requester %s: %w", req.RequesterID, err)
}

func (r *Resolver) resolveDepartmentHead(ctx context.Context, req *models.ApprovalRequest) ([]string, error) {
	// The request context may pin a department; otherwise use the
	// requester's own.
	department, _ := req.Context["department"].(string)
	if department == "" {
		requester, err := r.userRepo.FindByID(ctx, req.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to load requester %s: %w", req.RequesterID, err)
		}
		department = requester.Department
	}
	if department == "" {
		return nil, fmt.Errorf("no department known for request %s", req.RequestNumber)
	}

	head, err := r.userRepo.FindDepartmentHead(ctx, department)
	if err == nil {
		return []string{head.ID.Hex()}, nil
	}

	if r.directory != nil && r.directory.Enabled() {
		id, dirErr := r.directory.DepartmentHeadOf(ctx, department)
		if dirErr == nil {
			return []string{id}, nil
		}
		r.logger.Warn("directory department head lookup failed",
			zap.String("department", department),
			zap.Error(dirErr))
	}

	return nil, fmt.Errorf("no head found for department %s: %w", department, err)
}
