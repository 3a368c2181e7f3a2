package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/connectors"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/auth"
	"go-approvals/internal/features/delegation"
	"go-approvals/internal/features/escalation"
	"go-approvals/internal/features/notification"
	"go-approvals/internal/features/request"
	"go-approvals/internal/features/resolver"
	"go-approvals/internal/features/system"
	"go-approvals/internal/features/user"
	"go-approvals/internal/features/workflow"
	"go-approvals/internal/logger"
	"go-approvals/internal/middleware"

	_ "go-approvals/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	// Extract X-Tenant-ID so repositories can scope their queries
	app.Use(middleware.TenantMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// @title           Approval Workflow API
// @version         1.0
// @description     Multi-step approval workflow engine with delegations and escalations.

// @contact.name    API Support

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database & External Connectors
			database.NewDatabase,
			connectors.NewDirectoryConnector,

			// Initialize Repository
			audit.NewAuditRepository,
			user.NewUserRepository,
			workflow.NewWorkflowRepository,
			delegation.NewDelegationRepository,
			request.NewRequestRepository,
			request.NewSequenceRepository,
			notification.NewNotificationRepository,

			// Initialize Service
			audit.NewAuditService,
			auth.NewAuthService,
			user.NewUserService,
			workflow.NewWorkflowService,
			delegation.NewDelegationService,
			request.NewRequestService,
			escalation.NewEscalationService,
			notification.NewHub,
			notification.NewNotificationService,
			resolver.NewResolver,

			// Interface Adapters to satisfy Fx
			func(r user.UserRepository) audit.UserFinder { return r },

			// Initialize Controller
			auth.NewAuthController,
			user.NewUserController,
			audit.NewAuditController,
			workflow.NewWorkflowController,
			delegation.NewDelegationController,
			request.NewRequestController,
			escalation.NewEscalationController,
			notification.NewNotificationController,
			system.NewDebugController,
			system.NewWebSocketController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(delegation.NewDelegationApi),
			AsRoute(request.NewRequestApi),
			AsRoute(escalation.NewEscalationApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			escalation.NewScheduler,
		),
	)

	app.Run()
}
