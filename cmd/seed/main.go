package main

import (
	"context"
	"os"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/user"
	"go-approvals/internal/features/workflow"
	"go-approvals/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed bootstraps a fresh database with an admin user and a sample
// purchase-order workflow so the API is usable right after first start.
func Seed(
	lc fx.Lifecycle,
	userService user.UserService,
	workflowService workflow.WorkflowService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Starting database seeding...")

				tenantID := os.Getenv("SEED_TENANT_ID")
				if tenantID == "" {
					tenantID = primitive.NewObjectID().Hex()
				}
				seedCtx := context.WithValue(context.Background(), common_models.TenantIDKey, tenantID)
				seedCtx, cancel := context.WithTimeout(seedCtx, 30*time.Second)
				defer cancel()

				admin := &common_models.User{
					Username:  "admin",
					Password:  envOr("SEED_ADMIN_PASSWORD", "changeme"),
					Email:     "admin@example.com",
					FirstName: "System",
					LastName:  "Admin",
					Status:    "active",
					Roles:     []string{"admin", "workflow_admin"},
				}
				if err := userService.CreateUser(seedCtx, admin); err != nil {
					logger.Warn("admin user not created (may already exist)", zap.Error(err))
				} else {
					logger.Info("created admin user", zap.String("tenant_id", tenantID))
				}

				wf := sampleWorkflow()
				if err := workflowService.CreateWorkflow(seedCtx, wf); err != nil {
					logger.Warn("sample workflow not created (may already exist)", zap.Error(err))
					return
				}
				if err := workflowService.ChangeStatus(seedCtx, wf.ID.Hex(), common_models.WorkflowStatusActive); err != nil {
					logger.Warn("failed to activate sample workflow", zap.Error(err))
					return
				}
				logger.Info("created sample workflow", zap.String("code", wf.Code))
			}()
			return nil
		},
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sampleWorkflow() *common_models.Workflow {
	high := 10000.0
	return &common_models.Workflow{
		Name:         "Standard Purchase Order",
		Code:         "PO_STANDARD",
		Description:  "Manager approval, with finance sign-off above 10k",
		ApprovalType: "purchase_order",
		Steps: []common_models.WorkflowStep{
			{
				Name: "Manager Approval",
				Type: common_models.StepTypeSingle,
				Approvers: []common_models.Approver{
					{Type: common_models.ApproverTypeManager, Required: true, CanDelegate: true},
				},
			},
			{
				Name: "Finance Review",
				Type: common_models.StepTypeAny,
				Approvers: []common_models.Approver{
					{Type: common_models.ApproverTypeRole, ApproverID: "finance", Required: true, CanDelegate: true},
				},
				Conditions: []common_models.Condition{
					{Field: "amount", Operator: common_models.OperatorGreaterThan, Value: high},
				},
			},
		},
		RequireCommentsOnReject: true,
		SkipSelfApprovalSteps:   true,
		NotifyOnSubmit:          true,
		NotifyOnApprove:         true,
		NotifyOnReject:          true,
	}
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			audit.NewAuditRepository,
			user.NewUserRepository,
			workflow.NewWorkflowRepository,

			audit.NewAuditService,
			user.NewUserService,
			workflow.NewWorkflowService,

			func(r user.UserRepository) audit.UserFinder { return r },
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
