package user

import (
	"context"
	"time"

	"go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	ListUsers(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.User, int64, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id string, user *models.User) error
	UpdateUserStatus(ctx context.Context, id string, status string) error
}

type UserServiceImpl struct {
	UserRepo     UserRepository
	AuditService audit.AuditService
}

func NewUserService(userRepo UserRepository, auditService audit.AuditService) UserService {
	return &UserServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
	}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.User, int64, error) {
	if filter == nil {
		filter = make(map[string]interface{})
	}

	offset := (page - 1) * limit
	return s.UserRepo.List(ctx, filter, limit, offset)
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()

	if user.Status == "" {
		user.Status = "active"
	}

	if user.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.Password = string(hashed)
	}

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"username": {New: user.Username},
		"email":    {New: user.Email},
		"created":  {New: true},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "user", user.ID.Hex(), changes)

	return nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id string, user *models.User) error {
	user.UpdatedAt = time.Now()
	if err := s.UserRepo.Update(ctx, id, user); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"updated": {New: true},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", id, changes)

	return nil
}

func (s *UserServiceImpl) UpdateUserStatus(ctx context.Context, id string, status string) error {
	existing, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	old := existing.Status
	existing.Status = status
	existing.UpdatedAt = time.Now()
	if err := s.UserRepo.Update(ctx, id, existing); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"status": {Old: old, New: status},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", id, changes)

	return nil
}
